package indicator

// Bands is a lower/middle/upper channel.
type Bands struct {
	Lower  []float64
	Middle []float64
	Upper  []float64
}

// Bollinger returns SMA(n) +/- k population standard deviations.
func Bollinger(x []float64, n int, k float64) (Bands, bool) {
	mid, ok := SMA(x, n)
	if !ok {
		return Bands{}, false
	}
	std, ok := RollingStd(x, n, 0)
	if !ok {
		return Bands{}, false
	}
	lower := make([]float64, len(x))
	upper := make([]float64, len(x))
	for i := range x {
		lower[i] = mid[i] - k*std[i]
		upper[i] = mid[i] + k*std[i]
	}
	return Bands{Lower: lower, Middle: mid, Upper: upper}, true
}

// Keltner returns EMA(close, n) +/- mult * ATR(n).
func Keltner(high, low, close []float64, n int, mult float64) (Bands, bool) {
	mid, ok := EMA(close, n)
	if !ok {
		return Bands{}, false
	}
	atr, ok := ATR(high, low, close, n)
	if !ok {
		return Bands{}, false
	}
	lower := make([]float64, len(close))
	upper := make([]float64, len(close))
	for i := range close {
		lower[i] = mid[i] - mult*atr[i]
		upper[i] = mid[i] + mult*atr[i]
	}
	return Bands{Lower: lower, Middle: mid, Upper: upper}, true
}
