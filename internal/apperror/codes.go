package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Venue and engine specific error codes
const (
	// Venue transport errors
	CodeVenueConnectionFailed Code = "VENUE_CONNECTION_FAILED"
	CodeVenueAPIError         Code = "VENUE_API_ERROR"
	CodeVenueRateLimited      Code = "VENUE_RATE_LIMITED"
	CodeVenueAuthFailed       Code = "VENUE_AUTH_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Order lifecycle errors
	CodeOrderRejected         Code = "ORDER_REJECTED"
	CodeOrderAmbiguousOutcome Code = "ORDER_AMBIGUOUS_OUTCOME"
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeCancelFailed          Code = "CANCEL_FAILED"

	// Market data errors
	CodeOrderbookFetchFailed Code = "ORDERBOOK_FETCH_FAILED"
	CodeInvalidOrderbook     Code = "INVALID_ORDERBOOK"
	CodeQuoteUnavailable     Code = "QUOTE_UNAVAILABLE"
	CodeQuoteStale           Code = "QUOTE_STALE"

	// Position reconciliation errors
	CodePositionFetchFailed Code = "POSITION_FETCH_FAILED"
	CodePositionStale       Code = "POSITION_STALE"
	CodeReconcilerFrozen    Code = "RECONCILER_FROZEN"

	// Spread and sizing errors
	CodeSpreadCalculationError Code = "SPREAD_CALCULATION_ERROR"
	CodeInsufficientLiquidity  Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"

	// Cycle log errors
	CodeCycleLogWriteFailed Code = "CYCLE_LOG_WRITE_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
