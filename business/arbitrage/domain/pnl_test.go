package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNetPnL(t *testing.T) {
	tests := []struct {
		name         string
		entrySpread  string
		unwindSpread string
		feeRate      string
		want         string
	}{
		{
			name:         "profitable round trip",
			entrySpread:  "3500",
			unwindSpread: "1200",
			feeRate:      "0.0002",
			want:         "4699.06",
		},
		{
			name:         "losing unwind larger than entry",
			entrySpread:  "39",
			unwindSpread: "-45",
			feeRate:      "0.001",
			want:         "-6.084",
		},
		{
			name:         "zero fee is pure gross",
			entrySpread:  "100",
			unwindSpread: "-30",
			feeRate:      "0",
			want:         "70",
		},
		{
			name:         "fees charged on absolute spreads",
			entrySpread:  "-50",
			unwindSpread: "50",
			feeRate:      "0.01",
			want:         "-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetPnL(
				decimal.RequireFromString(tt.entrySpread),
				decimal.RequireFromString(tt.unwindSpread),
				decimal.RequireFromString(tt.feeRate),
			)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("NetPnL() = %s, want %s", got, want)
			}
		})
	}
}

func TestExitThresholds_Decide(t *testing.T) {
	thresholds := ExitThresholds{
		ProfitTarget: decimal.RequireFromString("1000"),
		StopLoss:     decimal.RequireFromString("-5000"),
	}

	tests := []struct {
		name       string
		netPnL     string
		mode       Mode
		wantReason ExitReason
		wantExit   bool
	}{
		{
			name:       "above target in offensive",
			netPnL:     "1500",
			mode:       ModeOffensive,
			wantReason: ExitProfitTarget,
			wantExit:   true,
		},
		{
			name:       "exactly at target exits",
			netPnL:     "1000",
			mode:       ModeOffensive,
			wantReason: ExitProfitTarget,
			wantExit:   true,
		},
		{
			name:       "exactly at stop exits",
			netPnL:     "-5000",
			mode:       ModeOffensive,
			wantReason: ExitStopLoss,
			wantExit:   true,
		},
		{
			name:     "between thresholds holds in offensive",
			netPnL:   "200",
			mode:     ModeOffensive,
			wantExit: false,
		},
		{
			name:       "between thresholds forced out in defensive",
			netPnL:     "200",
			mode:       ModeDefensive,
			wantReason: ExitTimeout,
			wantExit:   true,
		},
		{
			name:       "defensive still tags profit target when met",
			netPnL:     "1000",
			mode:       ModeDefensive,
			wantReason: ExitProfitTarget,
			wantExit:   true,
		},
		{
			name:       "small loss in defensive is a timeout",
			netPnL:     "-6.084",
			mode:       ModeDefensive,
			wantReason: ExitTimeout,
			wantExit:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, exit := thresholds.Decide(decimal.RequireFromString(tt.netPnL), tt.mode)
			if exit != tt.wantExit {
				t.Fatalf("Decide() exit = %v, want %v", exit, tt.wantExit)
			}
			if exit && reason != tt.wantReason {
				t.Errorf("Decide() reason = %s, want %s", reason, tt.wantReason)
			}
		})
	}
}

func TestExitThresholds_StopLossScenario(t *testing.T) {
	// entry 39, unwind -45, fee 0.001, stop -5: the loss plus fees breaches
	// the stop even though the gross loss alone is only -6.
	net := NetPnL(
		decimal.RequireFromString("39"),
		decimal.RequireFromString("-45"),
		decimal.RequireFromString("0.001"),
	)
	thresholds := ExitThresholds{
		ProfitTarget: decimal.RequireFromString("5"),
		StopLoss:     decimal.RequireFromString("-5"),
	}

	reason, exit := thresholds.Decide(net, ModeOffensive)
	if !exit {
		t.Fatal("expected exit to fire")
	}
	if reason != ExitStopLoss {
		t.Errorf("reason = %s, want %s", reason, ExitStopLoss)
	}
}
