// Package infra contains infrastructure adapters for the arbitrage context:
// the persistent cycle log and the reporters.
package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	"github.com/hirokim/crossarb/internal/apperror"
)

// cycleRow is the persisted shape of one engine cycle. Decimals are stored
// as strings so nothing is lost to float conversion.
type cycleRow struct {
	ID        uint      `gorm:"primarykey"`
	Timestamp time.Time `gorm:"index"`
	Symbol    string

	BidA string
	AskA string
	BidB string
	AskB string

	SpreadAToB string
	SpreadBToA string
	MaxSpread  string

	LongA  string
	ShortA string
	NetB   string

	Mode    string
	Action  string
	TradeID string
}

func (cycleRow) TableName() string { return "cycles" }

type tradeRow struct {
	ID          string `gorm:"primarykey"`
	Symbol      string
	Direction   string
	Qty         string
	EntryTime   time.Time
	EntrySpread string
	ExitTime    time.Time `gorm:"index"`
	ExitSpread  string
	GrossPnL    string
	FeeCost     string
	NetPnL      string
	ExitReason  string
}

func (tradeRow) TableName() string { return "trades" }

// SQLiteCycleLog persists cycle snapshots and closed trades to a local
// SQLite database. Records are append-only; nothing updates or deletes
// them.
type SQLiteCycleLog struct {
	db *gorm.DB
}

// NewSQLiteCycleLog opens (creating if needed) the database at path and
// migrates the schema.
func NewSQLiteCycleLog(path string) (*SQLiteCycleLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cycle log directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open cycle log database: %w", err)
	}

	if err := db.AutoMigrate(&cycleRow{}, &tradeRow{}); err != nil {
		return nil, fmt.Errorf("migrate cycle log schema: %w", err)
	}

	return &SQLiteCycleLog{db: db}, nil
}

// AppendCycle writes one cycle record.
func (l *SQLiteCycleLog) AppendCycle(ctx context.Context, snap domain.CycleSnapshot) error {
	row := cycleRow{
		Timestamp:  snap.Timestamp,
		Symbol:     snap.Symbol,
		BidA:       snap.BidA.String(),
		AskA:       snap.AskA.String(),
		BidB:       snap.BidB.String(),
		AskB:       snap.AskB.String(),
		SpreadAToB: snap.SpreadAToB.String(),
		SpreadBToA: snap.SpreadBToA.String(),
		MaxSpread:  snap.MaxSpread().String(),
		LongA:      snap.LongA.String(),
		ShortA:     snap.ShortA.String(),
		NetB:       snap.NetB.String(),
		Mode:       string(snap.Mode),
		Action:     string(snap.Action),
	}
	if snap.Trade != nil {
		row.TradeID = snap.Trade.ID
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperror.New(apperror.CodeCycleLogWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext("append cycle record"))
	}
	return nil
}

// RecordTrade writes one closed round trip.
func (l *SQLiteCycleLog) RecordTrade(ctx context.Context, trade domain.Trade) error {
	row := tradeRow{
		ID:          trade.ID,
		Symbol:      trade.Symbol,
		Direction:   string(trade.Direction),
		Qty:         trade.Qty.String(),
		EntryTime:   trade.EntryTime,
		EntrySpread: trade.EntrySpread.String(),
		ExitTime:    trade.ExitTime,
		ExitSpread:  trade.ExitSpread.String(),
		GrossPnL:    trade.GrossPnL.String(),
		FeeCost:     trade.FeeCost.String(),
		NetPnL:      trade.NetPnL.String(),
		ExitReason:  string(trade.ExitReason),
	}

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperror.New(apperror.CodeCycleLogWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext("record trade"))
	}
	return nil
}

// CyclesBetween returns cycle records in [from, to), oldest first.
func (l *SQLiteCycleLog) CyclesBetween(ctx context.Context, from, to time.Time) ([]domain.CycleSnapshot, error) {
	var rows []cycleRow
	err := l.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query cycle records: %w", err)
	}

	snaps := make([]domain.CycleSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// TradesBetween returns closed trades whose exit falls in [from, to),
// oldest first.
func (l *SQLiteCycleLog) TradesBetween(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	var rows []tradeRow
	err := l.db.WithContext(ctx).
		Where("exit_time >= ? AND exit_time < ?", from, to).
		Order("exit_time asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}

	trades := make([]domain.Trade, 0, len(rows))
	for _, row := range rows {
		trade, err := row.toTrade()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// Close releases the underlying database handle.
func (l *SQLiteCycleLog) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseDecimal(name, raw string, dst *decimal.Decimal) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", name, raw, err)
	}
	*dst = d
	return nil
}

func (r cycleRow) toSnapshot() (domain.CycleSnapshot, error) {
	snap := domain.CycleSnapshot{
		Timestamp: r.Timestamp,
		Symbol:    r.Symbol,
		Mode:      domain.Mode(r.Mode),
		Action:    domain.Action(r.Action),
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"bid_a", r.BidA, &snap.BidA},
		{"ask_a", r.AskA, &snap.AskA},
		{"bid_b", r.BidB, &snap.BidB},
		{"ask_b", r.AskB, &snap.AskB},
		{"spread_a_to_b", r.SpreadAToB, &snap.SpreadAToB},
		{"spread_b_to_a", r.SpreadBToA, &snap.SpreadBToA},
		{"long_a", r.LongA, &snap.LongA},
		{"short_a", r.ShortA, &snap.ShortA},
		{"net_b", r.NetB, &snap.NetB},
	} {
		if err := parseDecimal(f.name, f.raw, f.dst); err != nil {
			return domain.CycleSnapshot{}, err
		}
	}
	return snap, nil
}

func (r tradeRow) toTrade() (domain.Trade, error) {
	trade := domain.Trade{
		ID:         r.ID,
		Symbol:     r.Symbol,
		Direction:  pricingdomain.Direction(r.Direction),
		EntryTime:  r.EntryTime,
		ExitTime:   r.ExitTime,
		ExitReason: domain.ExitReason(r.ExitReason),
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"qty", r.Qty, &trade.Qty},
		{"entry_spread", r.EntrySpread, &trade.EntrySpread},
		{"exit_spread", r.ExitSpread, &trade.ExitSpread},
		{"gross_pnl", r.GrossPnL, &trade.GrossPnL},
		{"fee_cost", r.FeeCost, &trade.FeeCost},
		{"net_pnl", r.NetPnL, &trade.NetPnL},
	} {
		if err := parseDecimal(f.name, f.raw, f.dst); err != nil {
			return domain.Trade{}, err
		}
	}
	return trade, nil
}
