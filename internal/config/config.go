// Package config exposes strongly typed backtest configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics, logging and parallelism.
type App struct {
	Name        string `yaml:"name" default:"meanrev"`
	Env         string `yaml:"env" default:"dev"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level" default:"info"`
	LogFormat   string `yaml:"log_format" default:"json" validate:"oneof=json console"`
	Workers     int    `yaml:"workers" validate:"gte=0"`
}

// Cache configures the optional market data cache in front of the provider.
type Cache struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	TTL           time.Duration `yaml:"ttl" default:"24h"`
	RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	Prefix        string        `yaml:"prefix" default:"meanrev"`
}

// Data describes where price history comes from and which stocks and dates to test.
type Data struct {
	Dir          string   `yaml:"dir" default:"data"`
	Stocks       []string `yaml:"stocks"`
	SectorTicker string   `yaml:"sector_ticker"`
	Start        string   `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	End          string   `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
	Cache        Cache    `yaml:"cache"`
}

// Strategy groups the window lengths and thresholds used by the precomputer and signal engine.
type Strategy struct {
	Mode              string  `yaml:"mode" default:"meanrev" validate:"oneof=meanrev multi_timeframe"`
	DailyBandLength   int     `yaml:"daily_band_length" default:"20" validate:"gte=2"`
	DailyBandStd      float64 `yaml:"daily_band_std" default:"2" validate:"gt=0"`
	WeeklyBandLength  int     `yaml:"weekly_band_length" default:"20" validate:"gte=2"`
	WeeklyBandStd     float64 `yaml:"weekly_band_std" default:"2" validate:"gt=0"`
	MonthlyBandLength int     `yaml:"monthly_band_length" default:"6" validate:"gte=2"`
	MonthlyBandStd    float64 `yaml:"monthly_band_std" default:"2" validate:"gt=0"`
	RSILength         int     `yaml:"rsi_length" default:"14" validate:"gte=2"`
	RSIOversold       float64 `yaml:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	ATRLength         int     `yaml:"atr_length" default:"14" validate:"gte=1"`
	ADXLength         int     `yaml:"adx_length" default:"14" validate:"gte=1"`
	KeltnerLength     int     `yaml:"keltner_length" default:"20" validate:"gte=1"`
	KeltnerATRMult    float64 `yaml:"keltner_atr_mult" default:"2" validate:"gt=0"`
	StatWindow        int     `yaml:"stat_window" default:"100" validate:"gte=100"`
	HurstMaxLag       int     `yaml:"hurst_max_lag" default:"20" validate:"gte=4"`
	RequireDaily      *bool   `yaml:"require_daily" default:"true"`
	RequireWeekly     *bool   `yaml:"require_weekly" default:"true"`
	RequireMonthly    *bool   `yaml:"require_monthly" default:"true"`
	EntrySlippage     float64 `yaml:"entry_slippage" default:"0.001" validate:"gte=0"`
	ExitTargetDays    int     `yaml:"exit_target_days" default:"10" validate:"gte=1"`
}

// Bounds are the min/max pair handed to the linear scorer. Min greater than Max scores lower values higher.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// LiquidityGuard scores trailing average turnover.
type LiquidityGuard struct {
	LookbackDays int    `yaml:"lookback_days" default:"20" validate:"gte=1"`
	Turnover     Bounds `yaml:"turnover" default:"{\"min\":10000000,\"max\":100000000}"`
}

// RegimeGuard scores the sector volatility attached to a signal. Lower volatility scores higher,
// so SectorVol.Min must not be below SectorVol.Max; equal bounds give a step at that value.
type RegimeGuard struct {
	SectorVol Bounds `yaml:"sector_vol" default:"{\"min\":0.4,\"max\":0.15}"`
}

// StatGuard scores the unit-root p-value and Hurst exponent and carries the strict gate thresholds.
type StatGuard struct {
	PValue          Bounds  `yaml:"pvalue" default:"{\"min\":0.1,\"max\":0.01}"`
	Hurst           Bounds  `yaml:"hurst" default:"{\"min\":0.6,\"max\":0.4}"`
	PValueThreshold float64 `yaml:"pvalue_threshold" default:"0.05" validate:"gt=0,lte=1"`
	HurstThreshold  float64 `yaml:"hurst_threshold" default:"0.5" validate:"gt=0"`
}

// Guards bundles every validation guard.
type Guards struct {
	Liquidity LiquidityGuard `yaml:"liquidity"`
	Regime    RegimeGuard    `yaml:"regime"`
	Stat      StatGuard      `yaml:"stat"`
}

// Execution configures the slippage and transaction cost model.
type Execution struct {
	TradeNotional float64 `yaml:"trade_notional" default:"100000" validate:"gt=0"`
	ImpactFactor  float64 `yaml:"impact_factor" default:"0.1" validate:"gte=0"`
	BrokerageRate float64 `yaml:"brokerage_rate" default:"0.0003" validate:"gte=0"`
	BrokerageCap  float64 `yaml:"brokerage_cap" default:"20" validate:"gte=0"`
	TaxRate       float64 `yaml:"tax_rate" default:"0.001" validate:"gte=0"`
}

// Exit selects ATR stop exits or the legacy fixed horizon.
type Exit struct {
	UseATR         bool    `yaml:"use_atr"`
	ATRMultiplier  float64 `yaml:"atr_multiplier" default:"2" validate:"gt=0"`
	MaxHoldingDays int     `yaml:"max_holding_days" default:"20" validate:"gte=1"`
}

// Backtest holds the walk-forward loop gates.
type Backtest struct {
	MinHistoryDays      int     `yaml:"min_history_days" default:"252" validate:"gte=1"`
	MinCompositeScore   float64 `yaml:"min_composite_score" default:"0.1" validate:"gte=0,lte=1"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" default:"0.5" validate:"gte=0,lte=1"`
	StrictStatGate      bool    `yaml:"strict_stat_gate"`
}

// Oracle configures the optional external confidence scorer.
type Oracle struct {
	Enabled    bool          `yaml:"enabled"`
	URL        string        `yaml:"url" validate:"omitempty,url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	Retries    int           `yaml:"retries" default:"3" validate:"gte=1"`
	WindowDays int           `yaml:"window_days" default:"60" validate:"gte=1"`
}

// Sensitivity describes a one-parameter sweep.
type Sensitivity struct {
	Param string  `yaml:"param"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Step  float64 `yaml:"step"`
}

// Report configures where results are written.
type Report struct {
	TradesPath string `yaml:"trades_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App         `yaml:"app"`
	Data        Data        `yaml:"data"`
	Strategy    Strategy    `yaml:"strategy"`
	Guards      Guards      `yaml:"guards"`
	Execution   Execution   `yaml:"execution"`
	Exit        Exit        `yaml:"exit"`
	Backtest    Backtest    `yaml:"backtest"`
	Oracle      Oracle      `yaml:"oracle"`
	Sensitivity Sensitivity `yaml:"sensitivity"`
	Report      Report      `yaml:"report"`
}

var validate = validator.New()

// Default returns a fully defaulted config.
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads a YAML file from disk, applies defaults for unset fields and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks struct tags and the date range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if b := c.Guards.Regime.SectorVol; b.Min < b.Max {
		return fmt.Errorf("validate config: guards.regime.sector_vol.min %.4g below max %.4g, calm regimes must score higher", b.Min, b.Max)
	}
	if c.Oracle.Enabled && c.Oracle.URL == "" {
		return fmt.Errorf("validate config: oracle.url is required when oracle.enabled")
	}
	start, end, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("validate config: data.end %s before data.start %s", c.Data.End, c.Data.Start)
	}
	return nil
}

// ApplyEnv overrides secrets from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MEANREV_ORACLE_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("MEANREV_REDIS_PASSWORD"); v != "" {
		c.Data.Cache.RedisPassword = v
	}
	if v := os.Getenv("MEANREV_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// Range parses the configured start and end dates; unset dates come back zero.
func (d Data) Range() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if d.Start != "" {
		if start, err = time.Parse(time.DateOnly, d.Start); err != nil {
			return start, end, fmt.Errorf("parse data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = time.Parse(time.DateOnly, d.End); err != nil {
			return start, end, fmt.Errorf("parse data.end: %w", err)
		}
	}
	return start, end, nil
}

// Enabled dereferences an optional toggle, treating nil as on.
func Enabled(flag *bool) bool { return flag == nil || *flag }

// Bool returns a pointer to b, for toggles.
func Bool(b bool) *bool { return &b }
