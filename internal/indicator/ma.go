// Package indicator implements causal technical indicators over float series.
//
// Every function returns a slice aligned to its input with NaN during warm-up, so the value at
// row i only depends on rows <= i. The boolean result is false when the input is empty or shorter
// than the requested window; callers treat that as insufficient history.
package indicator

import "math"

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA over the trailing n points.
func SMA(x []float64, n int) ([]float64, bool) {
	if n <= 0 || len(x) < n {
		return nil, false
	}
	out := nans(len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= n {
			sum -= x[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out, true
}

// EMA with smoothing 2/(n+1), seeded by the SMA of the first n points.
func EMA(x []float64, n int) ([]float64, bool) {
	if n <= 0 || len(x) < n {
		return nil, false
	}
	return smooth(x, n, 2.0/float64(n+1)), true
}

// smooth runs an SMA-seeded exponential filter with weight k starting at the first full window.
func smooth(x []float64, n int, k float64) []float64 {
	out := nans(len(x))
	var seed float64
	for i := 0; i < n; i++ {
		seed += x[i]
	}
	out[n-1] = seed / float64(n)
	for i := n; i < len(x); i++ {
		out[i] = out[i-1] + k*(x[i]-out[i-1])
	}
	return out
}

// RollingStd is the trailing standard deviation with the given delta degrees of freedom
// (0 for population, 1 for sample).
func RollingStd(x []float64, n, ddof int) ([]float64, bool) {
	if n <= 0 || len(x) < n || n-ddof <= 0 {
		return nil, false
	}
	out := nans(len(x))
	for i := n - 1; i < len(x); i++ {
		win := x[i-n+1 : i+1]
		var mean float64
		for _, v := range win {
			mean += v
		}
		mean /= float64(n)
		var ss float64
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(n-ddof))
	}
	return out, true
}

// Mean of a slice; NaN when empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
