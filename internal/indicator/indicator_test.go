package indicator

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMAAndWarmup(t *testing.T) {
	out, ok := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !ok {
		t.Fatalf("expected result")
	}
	if !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN warmup, got %.2f", out[1])
	}
	if !almost(out[2], 2) || !almost(out[4], 4) {
		t.Fatalf("unexpected sma %v", out)
	}
	if _, ok := SMA([]float64{1, 2}, 3); ok {
		t.Fatalf("expected no result for short input")
	}
	if _, ok := SMA(nil, 3); ok {
		t.Fatalf("expected no result for empty input")
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	out, ok := EMA([]float64{2, 4, 6, 8}, 3)
	if !ok {
		t.Fatalf("expected result")
	}
	if !almost(out[2], 4) {
		t.Fatalf("expected seed 4, got %.4f", out[2])
	}
	if !almost(out[3], 6) {
		t.Fatalf("expected 4 + 0.5*(8-4) = 6, got %.4f", out[3])
	}
}

func TestRollingStd(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	pop, ok := RollingStd(x, 8, 0)
	if !ok || !almost(pop[7], 2) {
		t.Fatalf("expected population std 2, got %v", pop)
	}
	sample, _ := RollingStd(x, 8, 1)
	if !almost(sample[7], math.Sqrt(32.0/7.0)) {
		t.Fatalf("unexpected sample std %.6f", sample[7])
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	x := make([]float64, 30)
	for i := range x {
		x[i] = 50
	}
	bands, ok := Bollinger(x, 20, 2)
	if !ok {
		t.Fatalf("expected result")
	}
	if bands.Lower[29] != 50 || bands.Upper[29] != 50 || bands.Middle[29] != 50 {
		t.Fatalf("flat series should collapse bands, got %.2f/%.2f/%.2f", bands.Lower[29], bands.Middle[29], bands.Upper[29])
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6}
	out, ok := RSI(up, 3)
	if !ok || out[5] != 100 {
		t.Fatalf("rising series should read 100, got %v", out)
	}
	down := []float64{6, 5, 4, 3, 2, 1}
	out, _ = RSI(down, 3)
	if out[5] != 0 {
		t.Fatalf("falling series should read 0, got %.2f", out[5])
	}
	flat := []float64{3, 3, 3, 3, 3}
	out, _ = RSI(flat, 3)
	if out[4] != 50 {
		t.Fatalf("flat series should read 50, got %.2f", out[4])
	}
	if _, ok := RSI([]float64{1, 2, 3}, 3); ok {
		t.Fatalf("expected no result when len <= n")
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100
		high[i] = 101
		low[i] = 99
	}
	atr, ok := ATR(high, low, closes, 5)
	if !ok {
		t.Fatalf("expected atr")
	}
	if !math.IsNaN(atr[4]) || !almost(atr[5], 2) || !almost(atr[19], 2) {
		t.Fatalf("unexpected atr %v", atr)
	}
	kc, ok := Keltner(high, low, closes, 5, 1.5)
	if !ok || !almost(kc.Lower[10], 97) || !almost(kc.Upper[10], 103) {
		t.Fatalf("unexpected keltner %.2f/%.2f", kc.Lower[10], kc.Upper[10])
	}
}

func TestADXTrendingSeries(t *testing.T) {
	n := 60
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		closes[i] = base
		high[i] = base + 0.5
		low[i] = base - 0.5
	}
	adx, ok := ADX(high, low, closes, 14)
	if !ok {
		t.Fatalf("expected adx")
	}
	if !math.IsNaN(adx[26]) {
		t.Fatalf("expected warmup NaN at 26")
	}
	if adx[59] < 90 {
		t.Fatalf("steady uptrend should have very high adx, got %.2f", adx[59])
	}
	if _, ok := ADX(high[:20], low[:20], closes[:20], 14); ok {
		t.Fatalf("expected no result for short input")
	}
}
