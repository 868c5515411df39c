package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/apm"
	"github.com/hirokim/crossarb/internal/circuitbreaker"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/ratelimit"
)

const meterName = "crossarb.venue.gateway"

// GatewayConfig holds retry and throttling settings for one venue.
type GatewayConfig struct {
	MaxRetries     int           // total attempts for retryable calls
	InitialBackoff time.Duration // first retry delay, doubled per attempt
	MaxBackoff     time.Duration
	RequestTimeout time.Duration // per-attempt deadline
	RatePerSecond  float64
	RateBurst      int
}

// DefaultGatewayConfig returns settings suitable for exchange REST APIs.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RequestTimeout: 10 * time.Second,
		RatePerSecond:  5,
		RateBurst:      10,
	}
}

type gatewayMetrics struct {
	calls    metric.Int64Counter
	retries  metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// Gateway wraps a venue Adapter with rate limiting, a circuit breaker and
// bounded retries.
//
// Retry policy per capability:
//   - reads (order book, position, open orders): retried
//   - CancelOrder: retried (cancellation is idempotent)
//   - PlaceOrder: a single attempt, never blindly retried. A transport
//     failure surfaces domain.ErrAmbiguousOutcome and the next cycle
//     resolves the true outcome from venue state.
//
// Gateway itself satisfies Adapter so callers cannot tell a wrapped venue
// from a raw one.
type Gateway struct {
	adapter Adapter
	config  GatewayConfig
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[any]
	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics gatewayMetrics
}

// NewGateway wraps adapter with the gateway policies.
func NewGateway(adapter Adapter, cfg GatewayConfig, log logger.LoggerInterface) (*Gateway, error) {
	g := &Gateway{
		adapter: adapter,
		config:  cfg,
		limiter: ratelimit.NewWithBurst(cfg.RatePerSecond, cfg.RateBurst),
		breaker: circuitbreaker.New[any](circuitbreaker.DefaultConfig("venue-" + adapter.Name())),
		log:     log,
		tracer:  apm.NewTracer("venue.gateway"),
	}
	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init gateway metrics: %w", err)
	}
	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)

	var err error
	g.metrics.calls, err = meter.Int64Counter(
		"venue_gateway_calls_total",
		metric.WithDescription("Total venue API calls through the gateway"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.retries, err = meter.Int64Counter(
		"venue_gateway_retries_total",
		metric.WithDescription("Total venue API call retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	g.metrics.failures, err = meter.Int64Counter(
		"venue_gateway_failures_total",
		metric.WithDescription("Venue API calls that failed after all retries"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	g.metrics.latency, err = meter.Float64Histogram(
		"venue_gateway_call_duration_ms",
		metric.WithDescription("Venue API call duration including retries"),
		metric.WithUnit("ms"),
	)
	return err
}

// Name returns the wrapped venue's identifier.
func (g *Gateway) Name() string {
	return g.adapter.Name()
}

// GetOrderBook retrieves the order book with retry.
func (g *Gateway) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	return callRetryable(ctx, g, "get_order_book", func(ctx context.Context) (*domain.OrderBook, error) {
		return g.adapter.GetOrderBook(ctx, symbol)
	})
}

// GetPosition retrieves the position with retry.
func (g *Gateway) GetPosition(ctx context.Context, symbol string) (domain.Position, error) {
	return callRetryable(ctx, g, "get_position", func(ctx context.Context) (domain.Position, error) {
		return g.adapter.GetPosition(ctx, symbol)
	})
}

// ListOpenOrders retrieves resting orders with retry.
func (g *Gateway) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	return callRetryable(ctx, g, "list_open_orders", func(ctx context.Context) ([]domain.Order, error) {
		return g.adapter.ListOpenOrders(ctx, symbol)
	})
}

// CancelOrder cancels an order with retry. A venue reporting the order as
// already gone counts as success.
func (g *Gateway) CancelOrder(ctx context.Context, order domain.Order) error {
	_, err := callRetryable(ctx, g, "cancel_order", func(ctx context.Context) (struct{}, error) {
		err := g.adapter.CancelOrder(ctx, order)
		if errors.Is(err, domain.ErrOrderNotFound) {
			// Already filled or cancelled; the goal state is reached.
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

// PlaceOrder submits the order exactly once. Transport failures are
// reported as domain.ErrAmbiguousOutcome with the order in StatusUnknown;
// venue rejections come back unwrapped and are final.
func (g *Gateway) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, span := g.tracer.StartSpanFromContext(ctx, "venue.gateway.place_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("venue", g.adapter.Name()),
		attribute.String("side", string(order.Side)),
	)

	attrs := metric.WithAttributes(
		attribute.String("venue", g.adapter.Name()),
		attribute.String("op", "place_order"),
	)
	g.metrics.calls.Add(ctx, 1, attrs)
	start := time.Now()
	defer func() {
		g.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		return order, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (any, error) {
		return g.adapter.PlaceOrder(callCtx, order)
	})
	if err != nil {
		span.NoticeError(err)
		g.metrics.failures.Add(ctx, 1, attrs)

		if isVenueRejection(err) {
			order.Status = domain.StatusRejected
			return order, err
		}

		// The request may have reached the venue before failing. Leave
		// the order in an unknown state and let reconciliation decide.
		order.Status = domain.StatusUnknown
		g.log.Warn(ctx, "order outcome unknown after submission failure",
			"venue", g.adapter.Name(),
			"client_id", order.ClientID,
			"error", err)
		return order, fmt.Errorf("%w: %v", domain.ErrAmbiguousOutcome, err)
	}

	placed := result.(domain.Order)
	return placed, nil
}

// callRetryable runs fn through the rate limiter, circuit breaker and
// bounded exponential retry schedule.
func callRetryable[T any](ctx context.Context, g *Gateway, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := g.tracer.StartSpanFromContext(ctx, "venue.gateway."+op)
	defer span.End()
	span.SetAttributes(attribute.String("venue", g.adapter.Name()))

	attrs := metric.WithAttributes(
		attribute.String("venue", g.adapter.Name()),
		attribute.String("op", op),
	)
	g.metrics.calls.Add(ctx, 1, attrs)
	start := time.Now()
	defer func() {
		g.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.config.InitialBackoff
	expo.MaxInterval = g.config.MaxBackoff

	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		var zero T
		attempt++
		if attempt > 1 {
			g.metrics.retries.Add(ctx, 1, attrs)
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
		defer cancel()

		out, err := g.breaker.Execute(func() (any, error) {
			return fn(callCtx)
		})
		if err != nil {
			if isVenueRejection(err) || ctx.Err() != nil {
				return zero, backoff.Permanent(err)
			}
			g.log.Warn(ctx, "venue call failed, retrying",
				"venue", g.adapter.Name(),
				"op", op,
				"attempt", attempt,
				"error", err)
			return zero, err
		}
		return out.(T), nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(g.config.MaxRetries)))

	if err != nil {
		span.NoticeError(err)
		g.metrics.failures.Add(ctx, 1, attrs)
	}
	return result, err
}

// isVenueRejection reports whether the venue definitively refused the
// request, making a retry pointless.
func isVenueRejection(err error) bool {
	return errors.Is(err, domain.ErrOrderRejected) ||
		errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrOrderNotFound)
}
