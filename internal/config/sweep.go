package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownParam is returned for a sensitivity parameter missing from the registry.
var ErrUnknownParam = errors.New("config: unknown sweep parameter")

// Kind is the numeric type of a sweepable parameter.
type Kind int

const (
	Float Kind = iota
	Int
)

func (k Kind) String() string {
	if k == Int {
		return "int"
	}
	return "float"
}

// Param is a typed accessor pair for one sweepable field.
type Param struct {
	Name string
	Kind Kind
	get  func(*Config) float64
	set  func(*Config, float64)
}

// Get reads the current value.
func (p Param) Get(c *Config) float64 { return p.get(c) }

// Set writes v, rounding to the nearest integer for Int parameters.
func (p Param) Set(c *Config, v float64) {
	if p.Kind == Int {
		v = math.Round(v)
	}
	p.set(c, v)
}

func floatParam(name string, field func(*Config) *float64) Param {
	return Param{
		Name: name,
		Kind: Float,
		get:  func(c *Config) float64 { return *field(c) },
		set:  func(c *Config, v float64) { *field(c) = v },
	}
}

func intParam(name string, field func(*Config) *int) Param {
	return Param{
		Name: name,
		Kind: Int,
		get:  func(c *Config) float64 { return float64(*field(c)) },
		set:  func(c *Config, v float64) { *field(c) = int(v) },
	}
}

var sweepables = func() map[string]Param {
	params := []Param{
		intParam("strategy.daily_band_length", func(c *Config) *int { return &c.Strategy.DailyBandLength }),
		floatParam("strategy.daily_band_std", func(c *Config) *float64 { return &c.Strategy.DailyBandStd }),
		intParam("strategy.weekly_band_length", func(c *Config) *int { return &c.Strategy.WeeklyBandLength }),
		floatParam("strategy.weekly_band_std", func(c *Config) *float64 { return &c.Strategy.WeeklyBandStd }),
		intParam("strategy.monthly_band_length", func(c *Config) *int { return &c.Strategy.MonthlyBandLength }),
		floatParam("strategy.monthly_band_std", func(c *Config) *float64 { return &c.Strategy.MonthlyBandStd }),
		intParam("strategy.rsi_length", func(c *Config) *int { return &c.Strategy.RSILength }),
		floatParam("strategy.rsi_oversold", func(c *Config) *float64 { return &c.Strategy.RSIOversold }),
		intParam("strategy.atr_length", func(c *Config) *int { return &c.Strategy.ATRLength }),
		intParam("strategy.stat_window", func(c *Config) *int { return &c.Strategy.StatWindow }),
		floatParam("strategy.entry_slippage", func(c *Config) *float64 { return &c.Strategy.EntrySlippage }),
		intParam("strategy.exit_target_days", func(c *Config) *int { return &c.Strategy.ExitTargetDays }),
		intParam("guards.liquidity.lookback_days", func(c *Config) *int { return &c.Guards.Liquidity.LookbackDays }),
		floatParam("guards.liquidity.turnover.min", func(c *Config) *float64 { return &c.Guards.Liquidity.Turnover.Min }),
		floatParam("guards.liquidity.turnover.max", func(c *Config) *float64 { return &c.Guards.Liquidity.Turnover.Max }),
		floatParam("guards.regime.sector_vol.min", func(c *Config) *float64 { return &c.Guards.Regime.SectorVol.Min }),
		floatParam("guards.regime.sector_vol.max", func(c *Config) *float64 { return &c.Guards.Regime.SectorVol.Max }),
		floatParam("guards.stat.pvalue.min", func(c *Config) *float64 { return &c.Guards.Stat.PValue.Min }),
		floatParam("guards.stat.pvalue.max", func(c *Config) *float64 { return &c.Guards.Stat.PValue.Max }),
		floatParam("guards.stat.hurst.min", func(c *Config) *float64 { return &c.Guards.Stat.Hurst.Min }),
		floatParam("guards.stat.hurst.max", func(c *Config) *float64 { return &c.Guards.Stat.Hurst.Max }),
		floatParam("execution.trade_notional", func(c *Config) *float64 { return &c.Execution.TradeNotional }),
		floatParam("execution.impact_factor", func(c *Config) *float64 { return &c.Execution.ImpactFactor }),
		floatParam("execution.brokerage_rate", func(c *Config) *float64 { return &c.Execution.BrokerageRate }),
		floatParam("execution.tax_rate", func(c *Config) *float64 { return &c.Execution.TaxRate }),
		floatParam("exit.atr_multiplier", func(c *Config) *float64 { return &c.Exit.ATRMultiplier }),
		intParam("exit.max_holding_days", func(c *Config) *int { return &c.Exit.MaxHoldingDays }),
		intParam("backtest.min_history_days", func(c *Config) *int { return &c.Backtest.MinHistoryDays }),
		floatParam("backtest.min_composite_score", func(c *Config) *float64 { return &c.Backtest.MinCompositeScore }),
		floatParam("backtest.confidence_threshold", func(c *Config) *float64 { return &c.Backtest.ConfidenceThreshold }),
	}
	out := make(map[string]Param, len(params))
	for _, p := range params {
		out[p.Name] = p
	}
	return out
}()

// LookupParam resolves a dotted parameter name.
func LookupParam(name string) (Param, error) {
	p, ok := sweepables[name]
	if !ok {
		return Param{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p, nil
}

// ParamNames lists every sweepable parameter, sorted.
func ParamNames() []string {
	out := make([]string, 0, len(sweepables))
	for name := range sweepables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Values expands start..end by step inclusively. Int parameters need a whole, positive step.
func (p Param) Values(start, end, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("sweep %s: step must be positive", p.Name)
	}
	if end < start {
		return nil, fmt.Errorf("sweep %s: end %.4g before start %.4g", p.Name, end, start)
	}
	if p.Kind == Int && (step != math.Trunc(step) || start != math.Trunc(start)) {
		return nil, fmt.Errorf("sweep %s: integer parameter needs whole start and step", p.Name)
	}
	count := int(math.Floor((end-start)/step+1e-9)) + 1
	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, start+float64(i)*step)
	}
	return out, nil
}
