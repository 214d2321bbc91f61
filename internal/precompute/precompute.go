// Package precompute attaches every indicator and rolling statistic column to a price frame once per backtest.
package precompute

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/indicator"
	"meanrev-go/internal/stats"
)

// Column names written by Run.
const (
	BBLower         = "bb_lower"
	BBMiddle        = "bb_middle"
	BBUpper         = "bb_upper"
	RSI             = "rsi"
	ATR             = "atr"
	ADX             = "adx"
	KCLower         = "kc_lower"
	KCMiddle        = "kc_middle"
	KCUpper         = "kc_upper"
	BBLowerWeekly   = "bb_lower_weekly"
	BBMiddleWeekly  = "bb_middle_weekly"
	BBUpperWeekly   = "bb_upper_weekly"
	BBLowerMonthly  = "bb_lower_monthly"
	BBMiddleMonthly = "bb_middle_monthly"
	BBUpperMonthly  = "bb_upper_monthly"
	Hurst           = "hurst"
	ADFPValue       = "adf_pvalue"
)

// ErrEmptyFrame is returned when there is nothing to precompute.
var ErrEmptyFrame = errors.New("precompute: empty frame")

// Params are the window lengths the precomputer needs.
type Params struct {
	DailyBandLength   int
	DailyBandStd      float64
	WeeklyBandLength  int
	WeeklyBandStd     float64
	MonthlyBandLength int
	MonthlyBandStd    float64
	RSILength         int
	ATRLength         int
	ADXLength         int
	KeltnerLength     int
	KeltnerATRMult    float64
	StatWindow        int
	HurstMaxLag       int
}

// ParamsFrom maps the strategy config section onto precompute params.
func ParamsFrom(s config.Strategy) Params {
	return Params{
		DailyBandLength:   s.DailyBandLength,
		DailyBandStd:      s.DailyBandStd,
		WeeklyBandLength:  s.WeeklyBandLength,
		WeeklyBandStd:     s.WeeklyBandStd,
		MonthlyBandLength: s.MonthlyBandLength,
		MonthlyBandStd:    s.MonthlyBandStd,
		RSILength:         s.RSILength,
		ATRLength:         s.ATRLength,
		ADXLength:         s.ADXLength,
		KeltnerLength:     s.KeltnerLength,
		KeltnerATRMult:    s.KeltnerATRMult,
		StatWindow:        s.StatWindow,
		HurstMaxLag:       s.HurstMaxLag,
	}
}

// Precomputer computes indicator columns, degrading any single failing indicator to NaN.
type Precomputer struct {
	params Params
	log    zerolog.Logger
}

// New builds a precomputer.
func New(params Params, log zerolog.Logger) *Precomputer {
	return &Precomputer{params: params, log: log}
}

// Run returns a clone of f with every derived column attached. The source frame is left untouched.
func (p *Precomputer) Run(f *frame.Frame) (*frame.Frame, error) {
	if f.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	out := f.Clone()
	closes, _ := f.Column(frame.Close)
	high, _ := f.Column(frame.High)
	low, _ := f.Column(frame.Low)

	p.columns(out, []string{BBLower, BBMiddle, BBUpper}, func() ([][]float64, bool) {
		b, ok := indicator.Bollinger(closes, p.params.DailyBandLength, p.params.DailyBandStd)
		return [][]float64{b.Lower, b.Middle, b.Upper}, ok
	})
	p.columns(out, []string{RSI}, func() ([][]float64, bool) {
		v, ok := indicator.RSI(closes, p.params.RSILength)
		return [][]float64{v}, ok
	})
	p.columns(out, []string{ATR}, func() ([][]float64, bool) {
		v, ok := indicator.ATR(high, low, closes, p.params.ATRLength)
		return [][]float64{v}, ok
	})
	p.columns(out, []string{ADX}, func() ([][]float64, bool) {
		v, ok := indicator.ADX(high, low, closes, p.params.ADXLength)
		return [][]float64{v}, ok
	})
	p.columns(out, []string{KCLower, KCMiddle, KCUpper}, func() ([][]float64, bool) {
		b, ok := indicator.Keltner(high, low, closes, p.params.KeltnerLength, p.params.KeltnerATRMult)
		return [][]float64{b.Lower, b.Middle, b.Upper}, ok
	})
	p.columns(out, []string{BBLowerWeekly, BBMiddleWeekly, BBUpperWeekly}, func() ([][]float64, bool) {
		return resampledBands(f, frame.Weekly, p.params.WeeklyBandLength, p.params.WeeklyBandStd)
	})
	p.columns(out, []string{BBLowerMonthly, BBMiddleMonthly, BBUpperMonthly}, func() ([][]float64, bool) {
		return resampledBands(f, frame.Monthly, p.params.MonthlyBandLength, p.params.MonthlyBandStd)
	})
	p.columns(out, []string{Hurst}, func() ([][]float64, bool) {
		return [][]float64{Rolling(closes, p.params.StatWindow, func(w []float64) (float64, bool) {
			return stats.Hurst(w, p.params.HurstMaxLag)
		})}, true
	})
	p.columns(out, []string{ADFPValue}, func() ([][]float64, bool) {
		return [][]float64{Rolling(closes, p.params.StatWindow, stats.ADFPValue)}, true
	})
	return out, nil
}

// columns runs one indicator step. A panic, a missing result or a shape mismatch leaves
// all-NaN columns behind and is logged rather than failing the run.
func (p *Precomputer) columns(f *frame.Frame, names []string, compute func() ([][]float64, bool)) {
	vals, err := safely(compute)
	if err == nil && len(vals) != len(names) {
		err = fmt.Errorf("expected %d columns, got %d", len(names), len(vals))
	}
	if err != nil {
		p.log.Warn().Err(err).Strs("columns", names).Msg("indicator failed, using NaN columns")
		vals = nil
	}
	for i, name := range names {
		col := frame.NaNs(f.Len())
		if vals != nil {
			col = vals[i]
		}
		if setErr := f.SetColumn(name, col); setErr != nil {
			p.log.Warn().Err(setErr).Str("column", name).Msg("indicator shape mismatch, using NaN column")
			_ = f.SetColumn(name, frame.NaNs(f.Len()))
		}
	}
}

var errNoResult = errors.New("insufficient history")

func safely(compute func() ([][]float64, bool)) (vals [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			vals, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	vals, ok := compute()
	if !ok {
		return nil, errNoResult
	}
	return vals, nil
}

// resampledBands computes Bollinger bands on last-of-period closes and forward-fills them onto
// the daily index so each row only sees periods that have already closed.
func resampledBands(f *frame.Frame, period frame.Period, n int, k float64) ([][]float64, bool) {
	ends, last, ok := f.Resample(frame.Close, period)
	if !ok {
		return nil, false
	}
	bands, ok := indicator.Bollinger(last, n, k)
	if !ok {
		return nil, false
	}
	dates := f.Dates()
	return [][]float64{
		frame.ForwardFill(dates, ends, bands.Lower),
		frame.ForwardFill(dates, ends, bands.Middle),
		frame.ForwardFill(dates, ends, bands.Upper),
	}, true
}

// Rolling applies fn to each trailing window of length n; rows before the first full window
// and windows where fn has no result are NaN.
func Rolling(x []float64, n int, fn func([]float64) (float64, bool)) []float64 {
	out := frame.NaNs(len(x))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		if v, ok := fn(x[i-n+1 : i+1]); ok {
			out[i] = v
		}
	}
	return out
}
