// Package bitbank implements the venue adapter for the bitbank REST API.
package bitbank

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/apperror"
	"github.com/hirokim/crossarb/internal/httpclient"
	"github.com/hirokim/crossarb/internal/logger"
)

const (
	tracerName = "crossarb.venue.bitbank"

	// DefaultRESTURL is the private API host.
	DefaultRESTURL = "https://api.bitbank.cc"

	// DefaultPublicURL is the public market data host.
	DefaultPublicURL = "https://public.bitbank.cc"

	activeOrdersPath = "/v1/user/spot/active_orders"
	orderPath        = "/v1/user/spot/order"
	cancelOrderPath  = "/v1/user/spot/cancel_order"
	positionsPath    = "/v1/user/margin/positions"

	httpTimeout = 10 * time.Second

	// bitbank error codes that mean the order already left the book
	codeOrderNotFound = 50009

	// insufficient funds
	codeInsufficientFunds = 60001
)

// Config holds bitbank adapter configuration.
type Config struct {
	RESTURL   string
	PublicURL string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Adapter talks to the bitbank REST API. It implements app.Adapter.
type Adapter struct {
	private httpclient.Client
	public  httpclient.Client
	config  Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// New creates a bitbank adapter.
func New(cfg Config, log logger.LoggerInterface) (*Adapter, error) {
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = DefaultPublicURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	private, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("bitbank"),
		httpclient.WithBaseURL(cfg.RESTURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create private HTTP client: %w", err)
	}

	public, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("bitbank-public"),
		httpclient.WithBaseURL(cfg.PublicURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create public HTTP client: %w", err)
	}

	return &Adapter{
		private: private,
		public:  public,
		config:  cfg,
		logger:  log,
		tracer:  tracer,
	}, nil
}

// Name returns the venue identifier.
func (a *Adapter) Name() string { return "bitbank" }

// apiResponse is the envelope every bitbank endpoint returns.
type apiResponse struct {
	Success int             `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type apiError struct {
	Code int `json:"code"`
}

func (r *apiResponse) err() error {
	if r.Success == 1 {
		return nil
	}
	var e apiError
	if json.Unmarshal(r.Data, &e) == nil && e.Code != 0 {
		switch e.Code {
		case codeOrderNotFound:
			return fmt.Errorf("%w: bitbank code %d", domain.ErrOrderNotFound, e.Code)
		case codeInsufficientFunds:
			return fmt.Errorf("%w: bitbank code %d", domain.ErrInsufficientBalance, e.Code)
		}
		return fmt.Errorf("bitbank API error code %d", e.Code)
	}
	return fmt.Errorf("bitbank API request failed")
}

type depthData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
}

// GetOrderBook fetches the public depth snapshot.
func (a *Adapter) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	ctx, span := a.tracer.Start(ctx, "bitbank.get_order_book",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	var envelope apiResponse
	resp, err := a.public.NewRequest().
		SetResult(&envelope).
		Get(ctx, "/"+symbol+"/depth")
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("bitbank depth request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return nil, err
	}

	var data depthData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook, apperror.WithCause(err))
	}

	book := &domain.OrderBook{
		Venue:     a.Name(),
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
	for _, pair := range data.Bids {
		level, err := parsePairLevel(pair)
		if err != nil {
			return nil, err
		}
		book.Bids = append(book.Bids, level)
	}
	for _, pair := range data.Asks {
		level, err := parsePairLevel(pair)
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, level)
	}
	return book, nil
}

type positionEntry struct {
	Pair         string `json:"pair"`
	PositionSide string `json:"position_side"` // long or short
	OpenAmount   string `json:"open_amount"`
}

type positionsData struct {
	Positions []positionEntry `json:"positions"`
}

// GetPosition sums all open margin positions into one Position.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (domain.Position, error) {
	ctx, span := a.tracer.Start(ctx, "bitbank.get_position",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	pos := domain.Position{Venue: a.Name(), Symbol: symbol, UpdatedAt: time.Now()}

	var envelope apiResponse
	resp, err := a.privateGET(ctx, positionsPath, &envelope)
	if err != nil {
		span.RecordError(err)
		return pos, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("bitbank positions request failed"))
	}
	if resp.IsError() {
		return pos, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return pos, err
	}

	var data positionsData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return pos, fmt.Errorf("bitbank positions decode: %w", err)
	}

	for _, entry := range data.Positions {
		if entry.Pair != symbol {
			continue
		}
		size, err := decimal.NewFromString(entry.OpenAmount)
		if err != nil {
			return pos, fmt.Errorf("bitbank position amount %q: %w", entry.OpenAmount, err)
		}
		switch entry.PositionSide {
		case "long":
			pos.Long = pos.Long.Add(size)
		case "short":
			pos.Short = pos.Short.Add(size)
		}
	}
	return pos, nil
}

type orderEntry struct {
	OrderID        json.Number `json:"order_id"`
	Side           string      `json:"side"`
	Price          string      `json:"price"`
	StartAmount    string      `json:"start_amount"`
	ExecutedAmount string      `json:"executed_amount"`
}

type ordersData struct {
	Orders []orderEntry `json:"orders"`
}

// ListOpenOrders fetches all active orders for the pair.
func (a *Adapter) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	ctx, span := a.tracer.Start(ctx, "bitbank.list_open_orders",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	var envelope apiResponse
	resp, err := a.privateGET(ctx, activeOrdersPath+"?pair="+symbol, &envelope)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithCause(err),
			apperror.WithContext("bitbank active_orders request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return nil, err
	}

	var data ordersData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("bitbank active orders decode: %w", err)
	}

	orders := make([]domain.Order, 0, len(data.Orders))
	for _, entry := range data.Orders {
		order := domain.Order{
			Venue:        a.Name(),
			Symbol:       symbol,
			VenueOrderID: entry.OrderID.String(),
			Status:       domain.StatusOpen,
		}
		if entry.Side == "sell" {
			order.Side = domain.SideSell
		} else {
			order.Side = domain.SideBuy
		}
		var err error
		if order.Price, err = decimal.NewFromString(entry.Price); err != nil {
			return nil, fmt.Errorf("bitbank order price %q: %w", entry.Price, err)
		}
		if order.Qty, err = decimal.NewFromString(entry.StartAmount); err != nil {
			return nil, fmt.Errorf("bitbank order amount %q: %w", entry.StartAmount, err)
		}
		if entry.ExecutedAmount != "" {
			if order.FilledQty, err = decimal.NewFromString(entry.ExecutedAmount); err != nil {
				return nil, fmt.Errorf("bitbank executed amount %q: %w", entry.ExecutedAmount, err)
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type orderRequest struct {
	Pair   string `json:"pair"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
	Side   string `json:"side"`
	Type   string `json:"type"`
}

type orderData struct {
	OrderID json.Number `json:"order_id"`
}

// PlaceOrder submits a limit order.
func (a *Adapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, span := a.tracer.Start(ctx, "bitbank.place_order",
		trace.WithAttributes(
			attribute.String("symbol", order.Symbol),
			attribute.String("side", string(order.Side)),
		))
	defer span.End()

	req := orderRequest{
		Pair:   order.Symbol,
		Amount: order.Qty.String(),
		Price:  order.Price.String(),
		Side:   string(order.Side),
		Type:   "limit",
	}

	var envelope apiResponse
	resp, err := a.privatePOST(ctx, orderPath, req, &envelope)
	if err != nil {
		span.RecordError(err)
		return order, fmt.Errorf("bitbank order request: %w", err)
	}
	if resp.IsError() {
		return order, fmt.Errorf("bitbank order HTTP %d: %s", resp.StatusCode, resp.String())
	}
	if err := envelope.err(); err != nil {
		return order, classifyRejection(err)
	}

	var data orderData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return order, fmt.Errorf("bitbank order id decode: %w", err)
	}
	order.VenueOrderID = data.OrderID.String()
	order.Status = domain.StatusOpen

	a.logger.Debug(ctx, "bitbank order placed",
		"order_id", order.VenueOrderID,
		"side", order.Side,
		"price", order.Price,
		"amount", order.Qty)
	return order, nil
}

type cancelRequest struct {
	Pair    string      `json:"pair"`
	OrderID json.Number `json:"order_id"`
}

// CancelOrder cancels an active order.
func (a *Adapter) CancelOrder(ctx context.Context, order domain.Order) error {
	ctx, span := a.tracer.Start(ctx, "bitbank.cancel_order",
		trace.WithAttributes(attribute.String("order_id", order.VenueOrderID)))
	defer span.End()

	req := cancelRequest{Pair: order.Symbol, OrderID: json.Number(order.VenueOrderID)}

	var envelope apiResponse
	resp, err := a.privatePOST(ctx, cancelOrderPath, req, &envelope)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("bitbank cancel request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("bitbank cancel HTTP %d: %s", resp.StatusCode, resp.String())
	}
	return envelope.err()
}

// privateGET performs an authenticated GET. pathWithQuery must contain the
// final query string because it is covered by the signature.
func (a *Adapter) privateGET(ctx context.Context, pathWithQuery string, result any) (*httpclient.Response, error) {
	nonce := nonce()
	return a.private.NewRequest().
		SetHeaders(a.authHeaders(nonce, nonce+pathWithQuery)).
		SetResult(result).
		Get(ctx, pathWithQuery)
}

// privatePOST performs an authenticated POST. The signature covers
// nonce + body byte for byte.
func (a *Adapter) privatePOST(ctx context.Context, path string, body any, result any) (*httpclient.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	nonce := nonce()
	return a.private.NewRequest().
		SetHeaders(a.authHeaders(nonce, nonce+string(raw))).
		SetHeader("Content-Type", "application/json").
		SetBody(raw).
		SetResult(result).
		Post(ctx, path)
}

func (a *Adapter) authHeaders(nonce, message string) map[string]string {
	mac := hmac.New(sha256.New, []byte(a.config.APISecret))
	mac.Write([]byte(message))
	return map[string]string{
		"ACCESS-KEY":       a.config.APIKey,
		"ACCESS-NONCE":     nonce,
		"ACCESS-SIGNATURE": hex.EncodeToString(mac.Sum(nil)),
	}
}

func nonce() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func parsePairLevel(pair []string) (domain.BookLevel, error) {
	if len(pair) < 2 {
		return domain.BookLevel{}, fmt.Errorf("bitbank level has %d fields", len(pair))
	}
	price, err := decimal.NewFromString(pair[0])
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("parse price %q: %w", pair[0], err)
	}
	size, err := decimal.NewFromString(pair[1])
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("parse size %q: %w", pair[1], err)
	}
	return domain.BookLevel{Price: price, Size: size}, nil
}

// classifyRejection keeps already-typed sentinels and maps the rest to a
// final rejection so the gateway never retries them.
func classifyRejection(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrOrderNotFound):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrOrderRejected, err)
	}
}
