package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/precompute"
	"meanrev-go/internal/signal"
)

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func buildFrame(t *testing.T, closes []float64) *frame.Frame {
	t.Helper()
	dates := businessDays(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), len(closes))
	bars := make([]frame.Bar, len(closes))
	for i, c := range closes {
		bars[i] = frame.Bar{Date: dates[i], Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1e6, SectorVol: 0.1}
	}
	f, err := frame.FromBars(bars)
	if err != nil {
		t.Fatalf("FromBars: %v", err)
	}
	return f
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Strategy.WeeklyBandLength = 4
	cfg.Strategy.MonthlyBandLength = 6
	return cfg
}

func precomputed(t *testing.T, cfg *config.Config, closes []float64) *frame.Frame {
	t.Helper()
	out, err := precompute.New(precompute.ParamsFrom(cfg.Strategy), zerolog.Nop()).Run(buildFrame(t, closes))
	if err != nil {
		t.Fatalf("precompute: %v", err)
	}
	return out
}

// A quiet oscillation around 100 followed by a single sharp drop.
func sharpDrop(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 0.5*math.Sin(float64(i))
	}
	closes[n-1] = 80
	return closes
}

func TestGenerateSharpDropAlignsDailyAndWeekly(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.RequireMonthly = config.Bool(false)
	f := precomputed(t, cfg, sharpDrop(300))
	engine := NewEngine(ParamsFrom(cfg.Strategy))

	last := f.Len() - 1
	sig := engine.Generate(f, last)
	if sig == nil {
		t.Fatalf("expected signal on the drop bar")
	}
	if !sig.Aligned(signal.Daily) || !sig.Aligned(signal.Weekly) {
		t.Fatalf("expected daily and weekly alignment, got %s", sig.Reason())
	}
	if sig.Aligned(signal.Monthly) {
		t.Fatalf("drop closes below the monthly band, monthly must not align")
	}
	if math.Abs(sig.EntryPrice-80*1.001) > 1e-9 {
		t.Fatalf("unexpected entry price %.6f", sig.EntryPrice)
	}
	middle, _ := f.Value(precompute.BBMiddle, last)
	if sig.StopLoss != middle || sig.ExitTargetDays != cfg.Strategy.ExitTargetDays {
		t.Fatalf("unexpected stop %.4f / horizon %d", sig.StopLoss, sig.ExitTargetDays)
	}
	if sig.Index != last || !sig.Date.Equal(f.Date(last)) || sig.SectorVol != 0.1 {
		t.Fatalf("unexpected signal metadata %+v", sig)
	}

	for i := 0; i < last; i++ {
		if s := engine.Generate(f, i); s != nil {
			t.Fatalf("unexpected signal at %d in the quiet region: %s", i, s.Reason())
		}
	}
}

func TestGenerateRequiredMonthlyBlocksDrop(t *testing.T) {
	cfg := testConfig()
	f := precomputed(t, cfg, sharpDrop(300))
	if sig := NewEngine(ParamsFrom(cfg.Strategy)).Generate(f, f.Len()-1); sig != nil {
		t.Fatalf("required monthly condition should reject, got %s", sig.Reason())
	}
}

func TestGenerateFlatSeries(t *testing.T) {
	cfg := testConfig()
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100
	}
	f := precomputed(t, cfg, closes)
	engine := NewEngine(ParamsFrom(cfg.Strategy))
	for i := 0; i < f.Len(); i++ {
		if sig := engine.Generate(f, i); sig != nil {
			t.Fatalf("flat series produced a signal at %d", i)
		}
	}
}

func manualFrame(t *testing.T) *frame.Frame {
	t.Helper()
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 90
	}
	f := buildFrame(t, closes)
	set := func(name string, v float64) {
		col := make([]float64, f.Len())
		for i := range col {
			col[i] = v
		}
		if err := f.SetColumn(name, col); err != nil {
			t.Fatalf("SetColumn: %v", err)
		}
	}
	set(precompute.BBLower, 95)
	set(precompute.BBMiddle, 100)
	set(precompute.RSI, 20)
	set(precompute.BBLowerWeekly, 92)
	set(precompute.BBLowerMonthly, 85)
	return f
}

func TestGenerateConditionsAndToggles(t *testing.T) {
	f := manualFrame(t)
	params := ParamsFrom(config.Default().Strategy)

	if sig := NewEngine(params).Generate(f, params.DailyBandLength-1); sig != nil {
		t.Fatalf("index below the daily band length must not signal")
	}
	if sig := NewEngine(params).Generate(f, f.Len()); sig != nil {
		t.Fatalf("out of range index must not signal")
	}

	sig := NewEngine(params).Generate(f, 25)
	if sig == nil || sig.Reason() != "daily+weekly+monthly" {
		t.Fatalf("expected full alignment, got %+v", sig)
	}
	if sig.StopLoss != 100 {
		t.Fatalf("stop should be the daily middle band, got %.2f", sig.StopLoss)
	}

	params.RSIOversold = 10
	if sig := NewEngine(params).Generate(f, 25); sig != nil {
		t.Fatalf("rsi above oversold must reject when daily is required")
	}
	params.RequireDaily = false
	sig = NewEngine(params).Generate(f, 25)
	if sig == nil || sig.Aligned(signal.Daily) {
		t.Fatalf("expected weekly+monthly only, got %+v", sig)
	}
}

func TestGenerateMissingColumns(t *testing.T) {
	params := ParamsFrom(config.Default().Strategy)
	for _, name := range referenced {
		f := manualFrame(t)
		if err := f.SetColumn(name, frame.NaNs(f.Len())); err != nil {
			t.Fatalf("SetColumn: %v", err)
		}
		if sig := NewEngine(params).Generate(f, 25); sig != nil {
			t.Fatalf("%s unavailable must reject", name)
		}
	}

	// An untoggled condition still needs its column.
	f := manualFrame(t)
	if err := f.SetColumn(precompute.BBLowerMonthly, frame.NaNs(f.Len())); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	params.RequireMonthly = false
	if sig := NewEngine(params).Generate(f, 25); sig != nil {
		t.Fatalf("monthly band unavailable must reject even when monthly is not required, got %s", sig.Reason())
	}

	bare := buildFrame(t, make([]float64, 30))
	if sig := NewEngine(params).Generate(bare, 25); sig != nil {
		t.Fatalf("frame without indicator columns must not signal")
	}
}

func TestGenerateAllTogglesOff(t *testing.T) {
	f := manualFrame(t)
	set := func(name string, v float64) {
		col, _ := f.Column(name)
		for i := range col {
			col[i] = v
		}
	}
	// close 90: not below the weekly band, not above the monthly band.
	set(precompute.BBLowerWeekly, 85)
	set(precompute.BBLowerMonthly, 95)
	params := ParamsFrom(config.Default().Strategy)
	params.RSIOversold = 10
	params.RequireDaily, params.RequireWeekly, params.RequireMonthly = false, false, false

	sig := NewEngine(params).Generate(f, 25)
	if sig == nil {
		t.Fatalf("with nothing required an available row signals")
	}
	if len(sig.FramesAligned) != 0 || sig.Reason() != "" {
		t.Fatalf("no condition held, got %s", sig.Reason())
	}

	set(precompute.RSI, math.NaN())
	if sig := NewEngine(params).Generate(f, 25); sig != nil {
		t.Fatalf("unavailable columns reject even with nothing required")
	}
}

// A quiet oscillation around 100, a gentle 13-bar slide and a sharp last bar: 14 falling bars.
// The monthly band is wide enough that the drop stays above it.
func slideAndDrop(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 0.5*math.Sin(float64(i))
	}
	base := closes[n-15]
	for k := 0; k < 13; k++ {
		closes[n-14+k] = base - 0.1*float64(k+1)
	}
	closes[n-1] = 92
	return closes
}

func TestGenerateFourteenBarDropAllRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.MonthlyBandStd = 80
	if !config.Enabled(cfg.Strategy.RequireDaily) || !config.Enabled(cfg.Strategy.RequireWeekly) || !config.Enabled(cfg.Strategy.RequireMonthly) {
		t.Fatalf("expected every condition required by default")
	}
	f := precomputed(t, cfg, slideAndDrop(300))
	engine := NewEngine(ParamsFrom(cfg.Strategy))

	last := f.Len() - 1
	monthly, _ := f.Value(precompute.BBLowerMonthly, last)
	if px, _ := f.Value(frame.Close, last); px <= monthly {
		t.Fatalf("fixture must stay above the monthly band: close %.2f band %.2f", px, monthly)
	}
	for i := 0; i < f.Len(); i++ {
		sig := engine.Generate(f, i)
		if i < last {
			if sig != nil {
				t.Fatalf("unexpected signal at %d: %s", i, sig.Reason())
			}
			continue
		}
		if sig == nil {
			t.Fatalf("expected a signal at the final index")
		}
		if sig.Reason() != "daily+weekly+monthly" {
			t.Fatalf("expected all three timeframes, got %s", sig.Reason())
		}
	}
}

func TestBuild(t *testing.T) {
	s, err := Build("meanrev", ParamsFrom(config.Default().Strategy))
	if err != nil || s.Name() != "MultiTimeframeMeanReversion" {
		t.Fatalf("unexpected strategy %v err=%v", s, err)
	}
	if _, err := Build("obi", Params{}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
