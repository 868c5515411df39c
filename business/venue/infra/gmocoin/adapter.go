// Package gmocoin implements the venue adapter for the GMO Coin leverage API.
package gmocoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
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
	tracerName = "crossarb.venue.gmocoin"

	// DefaultRESTURL is the production API host.
	DefaultRESTURL = "https://api.coin.z.com"

	orderbooksEndpoint  = "/public/v1/orderbooks"
	positionsEndpoint   = "/private/v1/openPositions"
	activeOrdersEndpoint = "/private/v1/activeOrders"
	orderEndpoint       = "/private/v1/order"
	cancelOrderEndpoint = "/private/v1/cancelOrder"

	httpTimeout = 10 * time.Second
)

// Config holds GMO Coin adapter configuration.
type Config struct {
	RESTURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Adapter talks to the GMO Coin private REST API. It implements app.Adapter.
type Adapter struct {
	client httpclient.Client
	config Config
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// New creates a GMO Coin adapter.
func New(cfg Config, log logger.LoggerInterface) (*Adapter, error) {
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("gmocoin"),
		httpclient.WithBaseURL(cfg.RESTURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Adapter{
		client: client,
		config: cfg,
		logger: log,
		tracer: tracer,
	}, nil
}

// Name returns the venue identifier.
func (a *Adapter) Name() string { return "gmocoin" }

// apiResponse is the envelope every GMO endpoint returns.
type apiResponse struct {
	Status   int             `json:"status"`
	Data     json.RawMessage `json:"data"`
	Messages []apiMessage    `json:"messages"`
}

type apiMessage struct {
	Code   string `json:"message_code"`
	String string `json:"message_string"`
}

func (r *apiResponse) err() error {
	if r.Status == 0 {
		return nil
	}
	if len(r.Messages) > 0 {
		return fmt.Errorf("gmocoin API %s: %s", r.Messages[0].Code, r.Messages[0].String)
	}
	return fmt.Errorf("gmocoin API status %d", r.Status)
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type orderbookData struct {
	Asks   []bookLevel `json:"asks"`
	Bids   []bookLevel `json:"bids"`
	Symbol string      `json:"symbol"`
}

// GetOrderBook fetches the public order book snapshot.
func (a *Adapter) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	ctx, span := a.tracer.Start(ctx, "gmocoin.get_order_book",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	var envelope apiResponse
	resp, err := a.client.NewRequest().
		SetQueryParam("symbol", symbol).
		SetResult(&envelope).
		Get(ctx, orderbooksEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("gmocoin orderbooks request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return nil, err
	}

	var data orderbookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook, apperror.WithCause(err))
	}

	book := &domain.OrderBook{
		Venue:     a.Name(),
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
	for _, lv := range data.Bids {
		level, err := parseLevel(lv.Price, lv.Size)
		if err != nil {
			return nil, err
		}
		book.Bids = append(book.Bids, level)
	}
	for _, lv := range data.Asks {
		level, err := parseLevel(lv.Price, lv.Size)
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, level)
	}
	return book, nil
}

type positionEntry struct {
	Side string `json:"side"` // BUY or SELL
	Size string `json:"size"`
}

type positionsData struct {
	List []positionEntry `json:"list"`
}

// GetPosition sums all open leverage positions into one Position. BUY
// entries accumulate into Long, SELL into Short.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (domain.Position, error) {
	ctx, span := a.tracer.Start(ctx, "gmocoin.get_position",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	pos := domain.Position{Venue: a.Name(), Symbol: symbol, UpdatedAt: time.Now()}

	var envelope apiResponse
	resp, err := a.privateGET(ctx, positionsEndpoint, map[string]string{"symbol": symbol}, &envelope)
	if err != nil {
		span.RecordError(err)
		return pos, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("gmocoin openPositions request failed"))
	}
	if resp.IsError() {
		return pos, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return pos, err
	}

	// An account with no open positions returns an empty data object.
	if len(envelope.Data) == 0 || string(envelope.Data) == "{}" {
		return pos, nil
	}

	var data positionsData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return pos, fmt.Errorf("gmocoin positions decode: %w", err)
	}

	for _, entry := range data.List {
		size, err := decimal.NewFromString(entry.Size)
		if err != nil {
			return pos, fmt.Errorf("gmocoin position size %q: %w", entry.Size, err)
		}
		switch entry.Side {
		case "BUY":
			pos.Long = pos.Long.Add(size)
		case "SELL":
			pos.Short = pos.Short.Add(size)
		}
	}
	return pos, nil
}

type activeOrderEntry struct {
	OrderID      json.Number `json:"orderId"`
	Side         string      `json:"side"`
	Price        string      `json:"price"`
	Size         string      `json:"size"`
	ExecutedSize string      `json:"executedSize"`
}

type activeOrdersData struct {
	List []activeOrderEntry `json:"list"`
}

// ListOpenOrders fetches all active orders for the symbol.
func (a *Adapter) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	ctx, span := a.tracer.Start(ctx, "gmocoin.list_open_orders",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	var envelope apiResponse
	resp, err := a.privateGET(ctx, activeOrdersEndpoint, map[string]string{"symbol": symbol}, &envelope)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithCause(err),
			apperror.WithContext("gmocoin activeOrders request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := envelope.err(); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "{}" {
		return nil, nil
	}

	var data activeOrdersData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("gmocoin active orders decode: %w", err)
	}

	orders := make([]domain.Order, 0, len(data.List))
	for _, entry := range data.List {
		order := domain.Order{
			Venue:        a.Name(),
			Symbol:       symbol,
			VenueOrderID: entry.OrderID.String(),
			Status:       domain.StatusOpen,
		}
		if entry.Side == "SELL" {
			order.Side = domain.SideSell
		} else {
			order.Side = domain.SideBuy
		}
		var err error
		if order.Price, err = decimal.NewFromString(entry.Price); err != nil {
			return nil, fmt.Errorf("gmocoin order price %q: %w", entry.Price, err)
		}
		if order.Qty, err = decimal.NewFromString(entry.Size); err != nil {
			return nil, fmt.Errorf("gmocoin order size %q: %w", entry.Size, err)
		}
		if entry.ExecutedSize != "" {
			if order.FilledQty, err = decimal.NewFromString(entry.ExecutedSize); err != nil {
				return nil, fmt.Errorf("gmocoin executed size %q: %w", entry.ExecutedSize, err)
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	ExecutionType string `json:"executionType"`
	Price         string `json:"price"`
	Size          string `json:"size"`
}

// PlaceOrder submits a limit order on the leverage product.
func (a *Adapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, span := a.tracer.Start(ctx, "gmocoin.place_order",
		trace.WithAttributes(
			attribute.String("symbol", order.Symbol),
			attribute.String("side", string(order.Side)),
		))
	defer span.End()

	side := "BUY"
	if order.Side == domain.SideSell {
		side = "SELL"
	}
	req := orderRequest{
		Symbol:        order.Symbol,
		Side:          side,
		ExecutionType: "LIMIT",
		Price:         order.Price.String(),
		Size:          order.Qty.String(),
	}

	var envelope apiResponse
	resp, err := a.privatePOST(ctx, orderEndpoint, req, &envelope)
	if err != nil {
		span.RecordError(err)
		return order, fmt.Errorf("gmocoin order request: %w", err)
	}
	if resp.IsError() {
		return order, fmt.Errorf("gmocoin order HTTP %d: %s", resp.StatusCode, resp.String())
	}
	if err := envelope.err(); err != nil {
		return order, classifyRejection(err)
	}

	var orderID json.Number
	if err := json.Unmarshal(envelope.Data, &orderID); err != nil {
		return order, fmt.Errorf("gmocoin order id decode: %w", err)
	}
	order.VenueOrderID = orderID.String()
	order.Status = domain.StatusOpen

	a.logger.Debug(ctx, "gmocoin order placed",
		"order_id", order.VenueOrderID,
		"side", side,
		"price", order.Price,
		"size", order.Qty)
	return order, nil
}

type cancelRequest struct {
	OrderID json.Number `json:"orderId"`
}

// CancelOrder cancels an active order by its venue order id.
func (a *Adapter) CancelOrder(ctx context.Context, order domain.Order) error {
	ctx, span := a.tracer.Start(ctx, "gmocoin.cancel_order",
		trace.WithAttributes(attribute.String("order_id", order.VenueOrderID)))
	defer span.End()

	var envelope apiResponse
	resp, err := a.privatePOST(ctx, cancelOrderEndpoint, cancelRequest{OrderID: json.Number(order.VenueOrderID)}, &envelope)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("gmocoin cancel request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gmocoin cancel HTTP %d: %s", resp.StatusCode, resp.String())
	}
	if err := envelope.err(); err != nil {
		// An order that already left the book cannot be cancelled; the
		// desired end state is reached either way.
		if strings.Contains(err.Error(), "ERR-5122") {
			return domain.ErrOrderNotFound
		}
		return err
	}
	return nil
}

// privateGET performs an authenticated GET request.
func (a *Adapter) privateGET(ctx context.Context, endpoint string, params map[string]string, result any) (*httpclient.Response, error) {
	ts := timestamp()
	req := a.client.NewRequest().
		SetHeaders(a.authHeaders(ts, "GET", endpoint, "")).
		SetResult(result)
	for k, v := range params {
		req = req.SetQueryParam(k, v)
	}
	return req.Get(ctx, endpoint)
}

// privatePOST performs an authenticated POST request. The body is signed
// byte for byte, so it is marshalled once and sent raw.
func (a *Adapter) privatePOST(ctx context.Context, endpoint string, body any, result any) (*httpclient.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	ts := timestamp()
	return a.client.NewRequest().
		SetHeaders(a.authHeaders(ts, "POST", endpoint, string(raw))).
		SetHeader("Content-Type", "application/json").
		SetBody(raw).
		SetResult(result).
		Post(ctx, endpoint)
}

// authHeaders builds the GMO signing headers. The signature covers
// timestamp + method + path + body, with the path taken relative to the
// /private prefix.
func (a *Adapter) authHeaders(ts, method, endpoint, body string) map[string]string {
	path := strings.TrimPrefix(endpoint, "/private")
	mac := hmac.New(sha256.New, []byte(a.config.APISecret))
	mac.Write([]byte(ts + method + path + body))
	return map[string]string{
		"API-KEY":       a.config.APIKey,
		"API-TIMESTAMP": ts,
		"API-SIGN":      hex.EncodeToString(mac.Sum(nil)),
	}
}

func timestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func parseLevel(price, size string) (domain.BookLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("parse size %q: %w", size, err)
	}
	return domain.BookLevel{Price: p, Size: s}, nil
}

// classifyRejection maps GMO logical errors onto domain sentinels so the
// gateway can tell final rejections from ambiguous transport failures.
func classifyRejection(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "margin") || strings.Contains(msg, "insufficient") {
		return fmt.Errorf("%w: %v", domain.ErrInsufficientBalance, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrOrderRejected, err)
}
