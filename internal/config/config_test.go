package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: crossarb\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.VenueA.Name != "gmocoin" || cfg.VenueB.Name != "bitbank" {
		t.Errorf("venue defaults = %q/%q", cfg.VenueA.Name, cfg.VenueB.Name)
	}
	if cfg.Engine.EntryThreshold != 3000 {
		t.Errorf("entry threshold = %v, want 3000", cfg.Engine.EntryThreshold)
	}
	if cfg.Engine.CycleInterval != time.Second {
		t.Errorf("cycle interval = %v, want 1s", cfg.Engine.CycleInterval)
	}
	if cfg.Engine.MaxHoldDuration != 12*time.Hour {
		t.Errorf("max hold = %v, want 12h", cfg.Engine.MaxHoldDuration)
	}
	if cfg.Gateway.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.Gateway.MaxRetries)
	}
}

func TestLoad_PaperModeForcesPaperDrivers(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  paper_mode: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VenueA.Driver != "paper" || cfg.VenueB.Driver != "paper" {
		t.Errorf("drivers = %q/%q, want paper/paper", cfg.VenueA.Driver, cfg.VenueB.Driver)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "same venue on both legs",
			body: "venue_b:\n  name: gmocoin\n",
		},
		{
			name: "entry threshold must be positive",
			body: "engine:\n  entry_threshold: 0\n",
		},
		{
			name: "stop loss above exit threshold",
			body: "engine:\n  exit_threshold: 1000\n  stop_loss_threshold: 2000\n",
		},
		{
			name: "target qty must be positive",
			body: "engine:\n  target_qty: -1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
