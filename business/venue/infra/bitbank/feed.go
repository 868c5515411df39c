package bitbank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/wsconn"
)

// BookSink receives order book snapshots from a feed.
type BookSink func(book *domain.OrderBook)

// FeedConfig holds WebSocket feed configuration.
type FeedConfig struct {
	URL    string // e.g. wss://stream.bitbank.cc/socket.io/?EIO=3&transport=websocket
	Symbol string
}

// Feed streams whole-depth snapshots from the bitbank stream. The stream
// speaks socket.io over WebSocket, so the feed handles the engine.io
// framing itself: "40" opens the namespace, "42[...]" carries events and
// "2"/"3" are the heartbeat.
type Feed struct {
	config FeedConfig
	conn   *wsconn.Client
	sink   BookSink
	logger logger.LoggerInterface

	done chan struct{}
}

// NewFeed creates a bitbank depth feed.
func NewFeed(cfg FeedConfig, sink BookSink, log logger.LoggerInterface) (*Feed, error) {
	wsCfg := wsconn.DefaultConfig(cfg.URL, "bitbank-books")
	// The protocol heartbeat happens at the engine.io layer, not with
	// WebSocket ping frames.
	wsCfg.PingInterval = 0
	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, fmt.Errorf("bitbank feed: %w", err)
	}

	f := &Feed{
		config: cfg,
		conn:   conn,
		sink:   sink,
		logger: log,
		done:   make(chan struct{}),
	}
	conn.OnMessage(f.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "bitbank feed state change", "state", state, "error", err)
		} else {
			log.Debug(context.Background(), "bitbank feed state change", "state", state)
		}
	})
	return f, nil
}

// Connect dials the stream and starts the heartbeat.
func (f *Feed) Connect(ctx context.Context) error {
	if err := f.conn.Connect(ctx); err != nil {
		return err
	}
	go f.heartbeat()
	return nil
}

// Close shuts the feed down.
func (f *Feed) Close() error {
	close(f.done)
	return f.conn.Close()
}

func (f *Feed) heartbeat() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			if err := f.conn.Send(context.Background(), []byte("2")); err != nil {
				f.logger.Debug(context.Background(), "bitbank heartbeat send failed", "error", err)
			}
		}
	}
}

func (f *Feed) handleMessage(ctx context.Context, raw []byte) {
	msg := string(raw)
	switch {
	case msg == "2":
		// server heartbeat probe
		if err := f.conn.Send(ctx, []byte("3")); err != nil {
			f.logger.Debug(ctx, "bitbank heartbeat reply failed", "error", err)
		}
	case msg == "40" || strings.HasPrefix(msg, "40"):
		// namespace open: join the whole-depth room
		room := "depth_whole_" + f.config.Symbol
		join := fmt.Sprintf(`42["join-room",%q]`, room)
		if err := f.conn.Send(ctx, []byte(join)); err != nil {
			f.logger.Error(ctx, "bitbank join-room failed", "room", room, "error", err)
		}
	case strings.HasPrefix(msg, "42"):
		f.handleEvent(ctx, []byte(msg[2:]))
	}
}

type roomMessage struct {
	RoomName string `json:"room_name"`
	Message  struct {
		Data depthData `json:"data"`
	} `json:"message"`
}

func (f *Feed) handleEvent(ctx context.Context, payload []byte) {
	var event []json.RawMessage
	if err := json.Unmarshal(payload, &event); err != nil || len(event) < 2 {
		return
	}

	var name string
	if err := json.Unmarshal(event[0], &name); err != nil || name != "message" {
		return
	}

	var rm roomMessage
	if err := json.Unmarshal(event[1], &rm); err != nil {
		f.logger.Warn(ctx, "bitbank feed decode failed", "error", err)
		return
	}
	if rm.RoomName != "depth_whole_"+f.config.Symbol {
		return
	}

	book := &domain.OrderBook{
		Venue:     "bitbank",
		Symbol:    f.config.Symbol,
		Timestamp: time.Now(),
	}
	for _, pair := range rm.Message.Data.Bids {
		level, err := parsePairLevel(pair)
		if err != nil {
			f.logger.Warn(ctx, "bitbank feed bad bid level", "error", err)
			return
		}
		book.Bids = append(book.Bids, level)
	}
	for _, pair := range rm.Message.Data.Asks {
		level, err := parsePairLevel(pair)
		if err != nil {
			f.logger.Warn(ctx, "bitbank feed bad ask level", "error", err)
			return
		}
		book.Asks = append(book.Asks, level)
	}
	f.sink(book)
}
