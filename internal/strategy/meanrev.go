// Package strategy turns precomputed frame columns into mean-reversion entry signals.
package strategy

import (
	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/precompute"
	"meanrev-go/internal/signal"
)

// Params expresses the knobs the signal engine reads.
type Params struct {
	DailyBandLength int
	RSIOversold     float64
	RequireDaily    bool
	RequireWeekly   bool
	RequireMonthly  bool
	EntrySlippage   float64
	ExitTargetDays  int
}

// ParamsFrom maps the strategy config section onto engine params.
func ParamsFrom(s config.Strategy) Params {
	return Params{
		DailyBandLength: s.DailyBandLength,
		RSIOversold:     s.RSIOversold,
		RequireDaily:    config.Enabled(s.RequireDaily),
		RequireWeekly:   config.Enabled(s.RequireWeekly),
		RequireMonthly:  config.Enabled(s.RequireMonthly),
		EntrySlippage:   s.EntrySlippage,
		ExitTargetDays:  s.ExitTargetDays,
	}
}

// Engine tests multi-timeframe oversold alignment at a single row.
type Engine struct {
	params Params
}

// NewEngine builds an engine.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Name returns the identifier for logging.
func (e *Engine) Name() string { return "MultiTimeframeMeanReversion" }

// referenced lists every column Generate reads; a row missing any of them never signals.
var referenced = []string{
	frame.Close,
	precompute.BBLower,
	precompute.BBMiddle,
	precompute.RSI,
	precompute.BBLowerWeekly,
	precompute.BBLowerMonthly,
}

// Generate returns a long signal at index when every required condition holds, or nil.
// Only rows <= index are read. With every toggle off the row signals as long as its columns
// are available; FramesAligned then lists whichever conditions happened to hold.
func (e *Engine) Generate(f *frame.Frame, index int) *signal.Signal {
	if index < e.params.DailyBandLength || index >= f.Len() {
		return nil
	}
	row := make(map[string]float64, len(referenced))
	for _, name := range referenced {
		v, ok := f.Value(name, index)
		if !ok {
			return nil
		}
		row[name] = v
	}
	px := row[frame.Close]

	conds := []struct {
		tf       signal.Timeframe
		required bool
		holds    bool
	}{
		{signal.Daily, e.params.RequireDaily, px < row[precompute.BBLower] && row[precompute.RSI] < e.params.RSIOversold},
		{signal.Weekly, e.params.RequireWeekly, px < row[precompute.BBLowerWeekly]},
		{signal.Monthly, e.params.RequireMonthly, px > row[precompute.BBLowerMonthly]},
	}
	var aligned []signal.Timeframe
	for _, c := range conds {
		if c.required && !c.holds {
			return nil
		}
		if c.holds {
			aligned = append(aligned, c.tf)
		}
	}

	sectorVol, ok := f.Value(frame.SectorVol, index)
	if !ok {
		sectorVol = 0
	}
	return &signal.Signal{
		Index:          index,
		Date:           f.Date(index),
		EntryPrice:     px * (1 + e.params.EntrySlippage),
		StopLoss:       row[precompute.BBMiddle],
		ExitTargetDays: e.params.ExitTargetDays,
		FramesAligned:  aligned,
		SectorVol:      sectorVol,
	}
}
