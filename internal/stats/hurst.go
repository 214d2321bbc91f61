package stats

import "math"

const (
	// MinHurstObservations is the shortest series Hurst will estimate on.
	MinHurstObservations = 100
	// DefaultHurstMaxLag bounds the lag range 2..max_lag-1.
	DefaultHurstMaxLag = 20
)

// Hurst estimates the Hurst exponent as the log-log slope of the standard deviation of lagged
// differences against the lag, for lags 2..maxLag-1. Below 0.5 suggests mean reversion.
func Hurst(x []float64, maxLag int) (float64, bool) {
	if maxLag <= 0 {
		maxLag = DefaultHurstMaxLag
	}
	if len(x) < MinHurstObservations || maxLag < 4 || maxLag >= len(x) {
		return math.NaN(), false
	}
	lx := make([]float64, 0, maxLag-2)
	ly := make([]float64, 0, maxLag-2)
	for lag := 2; lag < maxLag; lag++ {
		sd := lagStd(x, lag)
		if !(sd > 0) {
			return math.NaN(), false
		}
		lx = append(lx, math.Log(float64(lag)))
		ly = append(ly, math.Log(sd))
	}
	return slope(lx, ly), true
}

// lagStd is the population standard deviation of x[t+lag]-x[t].
func lagStd(x []float64, lag int) float64 {
	n := len(x) - lag
	var mean float64
	for i := 0; i < n; i++ {
		mean += x[i+lag] - x[i]
	}
	mean /= float64(n)
	var ss float64
	for i := 0; i < n; i++ {
		d := x[i+lag] - x[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

func slope(x, y []float64) float64 {
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(len(x))
	my /= float64(len(y))
	var sxy, sxx float64
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	return sxy / sxx
}
