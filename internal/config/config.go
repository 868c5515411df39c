// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	VenueA    VenueConfig     `mapstructure:"venue_a"`
	VenueB    VenueConfig     `mapstructure:"venue_b"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	CycleLog  CycleLogConfig  `mapstructure:"cycle_log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogDir      string `mapstructure:"log_dir"`
	PaperMode   bool   `mapstructure:"paper_mode"`
}

// VenueConfig holds connection settings for one trading venue.
type VenueConfig struct {
	Name         string        `mapstructure:"name"`
	Driver       string        `mapstructure:"driver"` // "bitbank", "gmocoin" or "paper"
	RESTURL      string        `mapstructure:"rest_url"`
	WebSocketURL string        `mapstructure:"websocket_url"`
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Symbol       string        `mapstructure:"symbol"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// EngineConfig holds the spread thresholds and sizing parameters
// driving the execution cycle.
type EngineConfig struct {
	EntryThreshold    float64       `mapstructure:"entry_threshold"`
	ExitThreshold     float64       `mapstructure:"exit_threshold"`
	StopLossThreshold float64       `mapstructure:"stop_loss_threshold"`
	FeeRate           float64       `mapstructure:"fee_rate"`
	TargetQty         float64       `mapstructure:"target_qty"`
	MaxHoldDuration   time.Duration `mapstructure:"max_hold_duration"`
	CycleInterval     time.Duration `mapstructure:"cycle_interval"`
	PreferPrimary     bool          `mapstructure:"prefer_primary"`
	TUIMode           bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// EntryThresholdDecimal returns the entry threshold as decimal.Decimal.
func (c *EngineConfig) EntryThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.EntryThreshold)
}

// ExitThresholdDecimal returns the exit threshold as decimal.Decimal.
func (c *EngineConfig) ExitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ExitThreshold)
}

// StopLossThresholdDecimal returns the stop loss threshold as decimal.Decimal.
func (c *EngineConfig) StopLossThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.StopLossThreshold)
}

// FeeRateDecimal returns the taker fee rate as decimal.Decimal.
func (c *EngineConfig) FeeRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeeRate)
}

// TargetQtyDecimal returns the target position size as decimal.Decimal.
func (c *EngineConfig) TargetQtyDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TargetQty)
}

// GatewayConfig holds retry and throttling settings for venue calls.
type GatewayConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

// CycleLogConfig holds cycle journal persistence settings.
type CycleLogConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("CROSSARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Paper mode swaps both venues for the in-memory simulator.
	if cfg.App.PaperMode {
		cfg.VenueA.Driver = "paper"
		cfg.VenueB.Driver = "paper"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CROSSARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CROSSARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CROSSARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.paper_mode", "CROSSARB_PAPER_MODE")

	// Venue A
	v.BindEnv("venue_a.rest_url", "CROSSARB_VENUE_A_REST_URL")
	v.BindEnv("venue_a.websocket_url", "CROSSARB_VENUE_A_WS_URL")
	v.BindEnv("venue_a.api_key", "CROSSARB_VENUE_A_API_KEY", "VENUE_A_API_KEY")
	v.BindEnv("venue_a.api_secret", "CROSSARB_VENUE_A_API_SECRET", "VENUE_A_API_SECRET")

	// Venue B
	v.BindEnv("venue_b.rest_url", "CROSSARB_VENUE_B_REST_URL")
	v.BindEnv("venue_b.websocket_url", "CROSSARB_VENUE_B_WS_URL")
	v.BindEnv("venue_b.api_key", "CROSSARB_VENUE_B_API_KEY", "VENUE_B_API_KEY")
	v.BindEnv("venue_b.api_secret", "CROSSARB_VENUE_B_API_SECRET", "VENUE_B_API_SECRET")

	// Engine
	v.BindEnv("engine.entry_threshold", "CROSSARB_ENTRY_THRESHOLD")
	v.BindEnv("engine.exit_threshold", "CROSSARB_EXIT_THRESHOLD")
	v.BindEnv("engine.stop_loss_threshold", "CROSSARB_STOP_LOSS_THRESHOLD")
	v.BindEnv("engine.target_qty", "CROSSARB_TARGET_QTY")

	// Cycle log
	v.BindEnv("cycle_log.path", "CROSSARB_CYCLE_LOG_PATH")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CROSSARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CROSSARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CROSSARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "crossarb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.paper_mode", false)

	// Venue A defaults (GMO Coin leverage venue)
	v.SetDefault("venue_a.name", "gmocoin")
	v.SetDefault("venue_a.driver", "gmocoin")
	v.SetDefault("venue_a.rest_url", "https://api.coin.z.com")
	v.SetDefault("venue_a.websocket_url", "wss://api.coin.z.com/ws")
	v.SetDefault("venue_a.symbol", "BTC_JPY")
	v.SetDefault("venue_a.stale_timeout", "5s")

	// Venue B defaults (bitbank margin venue)
	v.SetDefault("venue_b.name", "bitbank")
	v.SetDefault("venue_b.driver", "bitbank")
	v.SetDefault("venue_b.rest_url", "https://api.bitbank.cc")
	v.SetDefault("venue_b.websocket_url", "wss://stream.bitbank.cc")
	v.SetDefault("venue_b.symbol", "btc_jpy")
	v.SetDefault("venue_b.stale_timeout", "5s")

	// Engine defaults
	v.SetDefault("engine.entry_threshold", 3000)
	v.SetDefault("engine.exit_threshold", 1000)
	v.SetDefault("engine.stop_loss_threshold", -5000)
	v.SetDefault("engine.fee_rate", 0.0002)
	v.SetDefault("engine.target_qty", 0.01)
	v.SetDefault("engine.max_hold_duration", "12h")
	v.SetDefault("engine.cycle_interval", "1s")
	v.SetDefault("engine.prefer_primary", true)

	// Gateway defaults
	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.initial_backoff", "200ms")
	v.SetDefault("gateway.max_backoff", "5s")
	v.SetDefault("gateway.request_timeout", "10s")
	v.SetDefault("gateway.rate_per_second", 5)
	v.SetDefault("gateway.rate_burst", 10)

	// Cycle log defaults
	v.SetDefault("cycle_log.path", "crossarb.db")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "crossarb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, vc := range []struct {
		key string
		cfg *VenueConfig
	}{{"venue_a", &c.VenueA}, {"venue_b", &c.VenueB}} {
		if vc.cfg.Name == "" {
			return fmt.Errorf("%s.name is required", vc.key)
		}
		if vc.cfg.Symbol == "" {
			return fmt.Errorf("%s.symbol is required", vc.key)
		}
		if vc.cfg.Driver != "paper" && vc.cfg.RESTURL == "" {
			return fmt.Errorf("%s.rest_url is required", vc.key)
		}
	}
	if c.VenueA.Name == c.VenueB.Name {
		return fmt.Errorf("venue_a and venue_b must be distinct venues")
	}
	if c.Engine.EntryThreshold <= 0 {
		return fmt.Errorf("engine.entry_threshold must be positive")
	}
	if c.Engine.StopLossThreshold >= c.Engine.ExitThreshold {
		return fmt.Errorf("engine.stop_loss_threshold must be below engine.exit_threshold")
	}
	if c.Engine.TargetQty <= 0 {
		return fmt.Errorf("engine.target_qty must be positive")
	}
	if c.Engine.CycleInterval <= 0 {
		return fmt.Errorf("engine.cycle_interval must be positive")
	}
	return nil
}
