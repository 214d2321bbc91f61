package risk

import (
	"math"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/precompute"
	"meanrev-go/internal/signal"
	"meanrev-go/internal/stats"
)

// Guard names used for rejection attribution.
const (
	LiquidityName = "liquidity"
	RegimeName    = "regime"
	StatName      = "stat"
)

// Guard scores a signal at one row in [0,1]. The set is closed: LiquidityGuard, RegimeGuard and StatGuard.
type Guard interface {
	Name() string
	Score(f *frame.Frame, index int, sig *signal.Signal) float64
	guard()
}

// LiquidityGuard scores trailing average turnover (close * volume).
type LiquidityGuard struct {
	lookback int
	bounds   config.Bounds
}

// NewLiquidityGuard builds the guard.
func NewLiquidityGuard(cfg config.LiquidityGuard) *LiquidityGuard {
	return &LiquidityGuard{lookback: cfg.LookbackDays, bounds: cfg.Turnover}
}

func (*LiquidityGuard) guard()       {}
func (*LiquidityGuard) Name() string { return LiquidityName }

// Turnover returns the average close*volume over the lookback rows ending at index.
func (g *LiquidityGuard) Turnover(f *frame.Frame, index int) (float64, bool) {
	if g.lookback <= 0 || index >= f.Len() || index-g.lookback+1 < 0 {
		return 0, false
	}
	closes, _ := f.Column(frame.Close)
	volume, _ := f.Column(frame.Volume)
	var sum float64
	for i := index - g.lookback + 1; i <= index; i++ {
		sum += closes[i] * volume[i]
	}
	avg := sum / float64(g.lookback)
	if math.IsNaN(avg) {
		return 0, false
	}
	return avg, true
}

// Score is 0 when the lookback window is not yet full.
func (g *LiquidityGuard) Score(f *frame.Frame, index int, _ *signal.Signal) float64 {
	turnover, ok := g.Turnover(f, index)
	if !ok {
		return 0
	}
	return LinearScore(turnover, g.bounds.Min, g.bounds.Max)
}

// RegimeGuard scores the sector volatility carried by the signal.
type RegimeGuard struct {
	bounds config.Bounds
}

// NewRegimeGuard builds the guard.
func NewRegimeGuard(cfg config.RegimeGuard) *RegimeGuard {
	return &RegimeGuard{bounds: cfg.SectorVol}
}

func (*RegimeGuard) guard()       {}
func (*RegimeGuard) Name() string { return RegimeName }

func (g *RegimeGuard) Score(_ *frame.Frame, _ int, sig *signal.Signal) float64 {
	if sig == nil {
		return 0
	}
	return LinearScore(sig.SectorVol, g.bounds.Min, g.bounds.Max)
}

// StatGuard scores mean-reversion evidence on the stat window of closes ending at the row.
type StatGuard struct {
	cfg    config.StatGuard
	window int
	maxLag int
}

// NewStatGuard builds the guard.
func NewStatGuard(cfg config.StatGuard, window, maxLag int) *StatGuard {
	return &StatGuard{cfg: cfg, window: window, maxLag: maxLag}
}

func (*StatGuard) guard()       {}
func (*StatGuard) Name() string { return StatName }

// Measures returns the unit-root p-value and Hurst exponent at index. Precomputed columns are
// used when the frame carries them; otherwise both are computed on the same trailing window.
func (g *StatGuard) Measures(f *frame.Frame, index int) (pvalue, hurst float64, ok bool) {
	if index < 0 || index >= f.Len() {
		return math.NaN(), math.NaN(), false
	}
	_, hasP := f.Column(precompute.ADFPValue)
	_, hasH := f.Column(precompute.Hurst)
	if hasP && hasH {
		p, okP := f.Value(precompute.ADFPValue, index)
		h, okH := f.Value(precompute.Hurst, index)
		return p, h, okP && okH
	}
	lo := index - g.window + 1
	if g.window <= 0 || lo < 0 {
		return math.NaN(), math.NaN(), false
	}
	closes, _ := f.Column(frame.Close)
	win := closes[lo : index+1]
	p, okP := stats.ADFPValue(win)
	h, okH := stats.Hurst(win, g.maxLag)
	return p, h, okP && okH
}

// Score is the geometric mean of the p-value and Hurst scores, 0 when either is unavailable.
func (g *StatGuard) Score(f *frame.Frame, index int, _ *signal.Signal) float64 {
	p, h, ok := g.Measures(f, index)
	if !ok {
		return 0
	}
	sp := LinearScore(p, g.cfg.PValue.Min, g.cfg.PValue.Max)
	sh := LinearScore(h, g.cfg.Hurst.Min, g.cfg.Hurst.Max)
	return math.Sqrt(sp * sh)
}

// IsValid is the strict gate: p-value and Hurst both under their thresholds.
func (g *StatGuard) IsValid(f *frame.Frame, index int) bool {
	p, h, ok := g.Measures(f, index)
	return ok && p < g.cfg.PValueThreshold && h < g.cfg.HurstThreshold
}
