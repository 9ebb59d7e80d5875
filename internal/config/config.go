package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/indicator"
	"github.com/newthinker/moverscan/internal/mover"
	"github.com/newthinker/moverscan/internal/signal"
	"github.com/newthinker/moverscan/internal/strategy"
	"github.com/spf13/viper"
)

type Config struct {
	Baskets    []BasketConfig   `mapstructure:"baskets"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Signal     SignalConfig     `mapstructure:"signal"`
	Indicators IndicatorsConfig `mapstructure:"indicators"`
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Workers    int              `mapstructure:"workers"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Record     RecordConfig     `mapstructure:"record"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Router    RouterConfig              `mapstructure:"router"`
}

// BasketConfig is a group of instruments fetched with the same range and bar interval.
type BasketConfig struct {
	Name     string          `mapstructure:"name"`
	Class    core.AssetClass `mapstructure:"class"`
	Symbols  []string        `mapstructure:"symbols"`
	Range    string          `mapstructure:"range"`    // Lookback, e.g. "5d", "1mo"
	Interval string          `mapstructure:"interval"` // Bar size, e.g. "1d", "1m"
}

type RankingConfig struct {
	TopN int `mapstructure:"top_n"`
}

// SignalConfig thresholds are percentages, margins are fractions of the last close.
type SignalConfig struct {
	BuyThreshold   float64 `mapstructure:"buy_threshold"`
	ShortThreshold float64 `mapstructure:"short_threshold"`
	BuyMargin      float64 `mapstructure:"buy_margin"`
	ShortMargin    float64 `mapstructure:"short_margin"`
}

type IndicatorsConfig struct {
	SMAWindows      []int   `mapstructure:"sma_windows"`
	EMAWindows      []int   `mapstructure:"ema_windows"`
	RSIPeriod       int     `mapstructure:"rsi_period"`
	BollingerWindow int     `mapstructure:"bollinger_window"`
	BollingerK      float64 `mapstructure:"bollinger_k"`
	MACDFast        int     `mapstructure:"macd_fast"`
	MACDSlow        int     `mapstructure:"macd_slow"`
	MACDSignal      int     `mapstructure:"macd_signal"`
	VolumeWindow    int     `mapstructure:"volume_window"`
}

type BacktestConfig struct {
	InitialBalance float64                   `mapstructure:"initial_balance"`
	Strategies     map[string]StrategyConfig `mapstructure:"strategies"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

type CollectorConfig struct {
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// RecordConfig enables the SQLite run recorder when SQLitePath is set.
type RecordConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// NotifierConfig is keyed by notifier type: "telegram" or "webhook".
type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Telegram notifier fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// RouterConfig filters the signals forwarded to notifiers.
type RouterConfig struct {
	MinMove  float64       `mapstructure:"min_move"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Actions  []core.Action `mapstructure:"actions"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Sections missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// setDefaults registers defaults for keys where zero is a legal value.
func setDefaults(v *viper.Viper) {
	sig := signal.DefaultConfig()
	v.SetDefault("signal.buy_threshold", sig.BuyThreshold)
	v.SetDefault("signal.short_threshold", sig.ShortThreshold)
	v.SetDefault("signal.buy_margin", sig.BuyMargin)
	v.SetDefault("signal.short_margin", sig.ShortMargin)
	v.SetDefault("metrics.enabled", true)
}

// DefaultBaskets returns the ETF, CFD and FX baskets scanned when none are configured.
func DefaultBaskets() []BasketConfig {
	return []BasketConfig{
		{
			Name:  "etf",
			Class: core.AssetETF,
			Symbols: []string{
				"MSS", "SPY", "IVV", "VOO", "QQQ", "DIA", "IWM", "VNQ",
				"GLD", "XLK", "EZU", "MCHI", "VGK", "FXI", "LIT", "^GDAXI",
			},
			Range:    "5d",
			Interval: "1d",
		},
		{
			Name:  "cfd",
			Class: core.AssetCFD,
			Symbols: []string{
				"AAPL", "MSFT", "GOOGL", "AMZN", "NFLX", "TSLA", "BABA", "NVDA",
				"JPM", "AMD", "CME", "INTC", "META", "BA", "DIS", "PYPL", "CSCO",
				"PEP", "KO", "NKE", "WMT", "PG", "HD", "VZ", "T", "XOM", "CVX", "MRK",
				"DJIA",
			},
			Range:    "1d",
			Interval: "1m",
		},
		{
			Name:     "forex",
			Class:    core.AssetForex,
			Symbols:  []string{"EURUSD=X", "GBPUSD=X", "USDJPY=X", "AUDUSD=X", "USDCAD=X"},
			Range:    "1mo",
			Interval: "1d",
		},
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	sig := signal.DefaultConfig()
	cfg := &Config{
		Signal: SignalConfig{
			BuyThreshold:   sig.BuyThreshold,
			ShortThreshold: sig.ShortThreshold,
			BuyMargin:      sig.BuyMargin,
			ShortMargin:    sig.ShortMargin,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Baskets) == 0 {
		c.Baskets = DefaultBaskets()
	}
	if c.Ranking.TopN == 0 {
		c.Ranking.TopN = mover.DefaultTopN
	}

	ind := indicator.DefaultParams()
	if len(c.Indicators.SMAWindows) == 0 {
		c.Indicators.SMAWindows = ind.SMAWindows
	}
	if len(c.Indicators.EMAWindows) == 0 {
		c.Indicators.EMAWindows = ind.EMAWindows
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = ind.RSIPeriods[0]
	}
	if c.Indicators.BollingerWindow == 0 {
		c.Indicators.BollingerWindow = ind.BollingerWindow
	}
	if c.Indicators.BollingerK == 0 {
		c.Indicators.BollingerK = ind.BollingerK
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = ind.MACDFast
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = ind.MACDSlow
	}
	if c.Indicators.MACDSignal == 0 {
		c.Indicators.MACDSignal = ind.MACDSignal
	}
	if c.Indicators.VolumeWindow == 0 {
		c.Indicators.VolumeWindow = ind.VolumeWindow
	}

	if c.Backtest.InitialBalance == 0 {
		c.Backtest.InitialBalance = backtest.DefaultInitialBalance
	}
	if len(c.Backtest.Strategies) == 0 {
		c.Backtest.Strategies = map[string]StrategyConfig{
			"threshold":     {Enabled: true},
			"ma_crossover":  {Enabled: true},
			"rsi_threshold": {Enabled: true},
			"bar_direction": {Enabled: true},
		}
	}

	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Collector.Name == "" {
		c.Collector.Name = "yahoo"
	}
	if c.Collector.Timeout == 0 {
		c.Collector.Timeout = 30 * time.Second
	}
	if c.Archive.Type == "localfs" && c.Archive.Path == "" {
		c.Archive.Path = "./reports"
	}
	if c.Router.Cooldown == 0 {
		c.Router.Cooldown = time.Hour
	}
	if len(c.Router.Actions) == 0 {
		c.Router.Actions = []core.Action{core.ActionBuy, core.ActionShort}
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "*/15 * * * *"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Baskets) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one basket is required"))
	}
	seen := make(map[string]bool)
	for i, b := range c.Baskets {
		if b.Name == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("baskets[%d]: name required", i))
		}
		if seen[b.Name] {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("duplicate basket %q", b.Name))
		}
		seen[b.Name] = true
		if len(b.Symbols) == 0 {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("basket %q has no symbols", b.Name))
		}
		if b.Range == "" || b.Interval == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("basket %q needs range and interval", b.Name))
		}
	}

	if c.Ranking.TopN < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ranking.top_n must be positive, got %d", c.Ranking.TopN))
	}

	// Signal validation
	if c.Signal.BuyThreshold < 0 || c.Signal.ShortThreshold < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signal thresholds cannot be negative"))
	}
	if c.Signal.BuyMargin < 0 || c.Signal.ShortMargin < 0 || c.Signal.ShortMargin >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signal margins must be fractions, got buy=%f short=%f", c.Signal.BuyMargin, c.Signal.ShortMargin))
	}

	ind := c.Indicators
	for _, w := range append(append([]int{}, ind.SMAWindows...), ind.EMAWindows...) {
		if w < 1 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("indicator window must be positive, got %d", w))
		}
	}
	if ind.RSIPeriod < 1 || ind.BollingerWindow < 1 || ind.VolumeWindow < 1 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("indicator periods must be positive"))
	}
	if ind.MACDFast < 1 || ind.MACDFast >= ind.MACDSlow || ind.MACDSignal < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("macd periods invalid: fast=%d slow=%d signal=%d", ind.MACDFast, ind.MACDSlow, ind.MACDSignal))
	}

	if c.Backtest.InitialBalance <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest.initial_balance must be positive, got %f", c.Backtest.InitialBalance))
	}
	if c.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}

	// Archive validation
	switch c.Archive.Type {
	case "":
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.path required for localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.s3.bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	if c.Router.MinMove < 0 || c.Router.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("router min_move and cooldown cannot be negative"))
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifiers.telegram needs bot_token and chat_id"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifiers.webhook needs url"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}
	}

	return nil
}

// SignalEngineConfig converts the signal section.
func (c *Config) SignalEngineConfig() signal.Config {
	return signal.Config{
		BuyThreshold:   c.Signal.BuyThreshold,
		ShortThreshold: c.Signal.ShortThreshold,
		BuyMargin:      c.Signal.BuyMargin,
		ShortMargin:    c.Signal.ShortMargin,
	}
}

// IndicatorParams converts the indicators section.
func (c *Config) IndicatorParams() indicator.Params {
	ind := c.Indicators
	return indicator.Params{
		SMAWindows:      ind.SMAWindows,
		EMAWindows:      ind.EMAWindows,
		RSIPeriods:      []int{ind.RSIPeriod},
		BollingerWindow: ind.BollingerWindow,
		BollingerK:      ind.BollingerK,
		MACDFast:        ind.MACDFast,
		MACDSlow:        ind.MACDSlow,
		MACDSignal:      ind.MACDSignal,
		VolumeWindow:    ind.VolumeWindow,
	}
}

// StrategyConfigs converts the backtest strategies section.
func (c *Config) StrategyConfigs() map[string]strategy.Config {
	out := make(map[string]strategy.Config, len(c.Backtest.Strategies))
	for name, s := range c.Backtest.Strategies {
		out[name] = strategy.Config{Enabled: s.Enabled, Params: s.Params}
	}
	return out
}
