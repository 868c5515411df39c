package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Venue transport errors
	CodeVenueConnectionFailed: "Failed to connect to venue API",
	CodeVenueAPIError:         "Venue API error",
	CodeVenueRateLimited:      "Venue rate limit exceeded",
	CodeVenueAuthFailed:       "Venue authentication failed",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Order lifecycle errors
	CodeOrderRejected:         "Order rejected by venue",
	CodeOrderAmbiguousOutcome: "Order outcome unknown after submission failure",
	CodeOrderNotFound:         "Order not found on venue",
	CodeInsufficientBalance:   "Insufficient balance for order",
	CodeCancelFailed:          "Failed to cancel order",

	// Market data errors
	CodeOrderbookFetchFailed: "Failed to fetch orderbook",
	CodeInvalidOrderbook:     "Invalid orderbook data",
	CodeQuoteUnavailable:     "Quote unavailable for venue",
	CodeQuoteStale:           "Quote exceeded maximum age",

	// Position reconciliation errors
	CodePositionFetchFailed: "Failed to fetch position from venue",
	CodePositionStale:       "Position data is stale",
	CodeReconcilerFrozen:    "Reconciler frozen after repeated stale reads",

	// Spread and sizing errors
	CodeSpreadCalculationError: "Spread calculation error",
	CodeInsufficientLiquidity:  "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:       "Invalid trade size",

	// Cycle log errors
	CodeCycleLogWriteFailed: "Failed to persist cycle record",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
