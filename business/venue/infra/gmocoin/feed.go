package gmocoin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/wsconn"
)

// BookSink receives order book snapshots from a feed.
type BookSink func(book *domain.OrderBook)

// FeedConfig holds WebSocket feed configuration.
type FeedConfig struct {
	URL    string // public WS endpoint, e.g. wss://api.coin.z.com/ws/public/v1
	Symbol string
}

// Feed streams order book snapshots from the public WebSocket API and
// pushes them into a sink. GMO publishes full snapshots per message, so
// no local book assembly is needed.
type Feed struct {
	config FeedConfig
	conn   *wsconn.Client
	sink   BookSink
	logger logger.LoggerInterface
}

// NewFeed creates a GMO order book feed.
func NewFeed(cfg FeedConfig, sink BookSink, log logger.LoggerInterface) (*Feed, error) {
	wsCfg := wsconn.DefaultConfig(cfg.URL, "gmocoin-books")
	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, fmt.Errorf("gmocoin feed: %w", err)
	}

	f := &Feed{
		config: cfg,
		conn:   conn,
		sink:   sink,
		logger: log,
	}
	conn.OnMessage(f.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		ctx := context.Background()
		if err != nil {
			log.Warn(ctx, "gmocoin feed state change", "state", state, "error", err)
		} else {
			log.Debug(ctx, "gmocoin feed state change", "state", state)
		}
		// Subscriptions do not survive a reconnect.
		if state == wsconn.StateConnected {
			go f.subscribe(ctx)
		}
	})
	return f, nil
}

// Connect dials the WebSocket endpoint. The subscription is sent by the
// state change handler once connected.
func (f *Feed) Connect(ctx context.Context) error {
	return f.conn.Connect(ctx)
}

// Close shuts the feed down.
func (f *Feed) Close() error {
	return f.conn.Close()
}

func (f *Feed) subscribe(ctx context.Context) {
	msg := map[string]string{
		"command": "subscribe",
		"channel": "orderbooks",
		"symbol":  f.config.Symbol,
	}
	if err := f.conn.SendJSON(ctx, msg); err != nil {
		f.logger.Error(ctx, "gmocoin subscribe failed", "error", err)
	}
}

type bookMessage struct {
	Channel string      `json:"channel"`
	Symbol  string      `json:"symbol"`
	Asks    []bookLevel `json:"asks"`
	Bids    []bookLevel `json:"bids"`
}

func (f *Feed) handleMessage(ctx context.Context, raw []byte) {
	var msg bookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Warn(ctx, "gmocoin feed decode failed", "error", err)
		return
	}
	if msg.Channel != "orderbooks" || msg.Symbol != f.config.Symbol {
		return
	}

	book := &domain.OrderBook{
		Venue:     "gmocoin",
		Symbol:    msg.Symbol,
		Timestamp: time.Now(),
	}
	for _, lv := range msg.Bids {
		level, err := parseLevel(lv.Price, lv.Size)
		if err != nil {
			f.logger.Warn(ctx, "gmocoin feed bad bid level", "error", err)
			return
		}
		book.Bids = append(book.Bids, level)
	}
	for _, lv := range msg.Asks {
		level, err := parseLevel(lv.Price, lv.Size)
		if err != nil {
			f.logger.Warn(ctx, "gmocoin feed bad ask level", "error", err)
			return
		}
		book.Asks = append(book.Asks, level)
	}
	f.sink(book)
}
