package indicator

import "math"

// RSI is Wilder's relative strength index. The first value appears at row n.
// A window with no losses reads 100; a completely flat window reads 50.
func RSI(x []float64, n int) ([]float64, bool) {
	if n <= 0 || len(x) <= n {
		return nil, false
	}
	out := nans(len(x))
	var gain, loss float64
	for i := 1; i <= n; i++ {
		g, l := split(x[i] - x[i-1])
		gain += g
		loss += l
	}
	gain /= float64(n)
	loss /= float64(n)
	out[n] = rsi(gain, loss)
	for i := n + 1; i < len(x); i++ {
		g, l := split(x[i] - x[i-1])
		gain = (gain*float64(n-1) + g) / float64(n)
		loss = (loss*float64(n-1) + l) / float64(n)
		out[i] = rsi(gain, loss)
	}
	return out, true
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsi(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// TrueRange per row; row 0 falls back to high-low.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		out[i] = math.Max(hl, math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}
	return out
}

// ATR is Wilder's average true range. The first value appears at row n.
func ATR(high, low, close []float64, n int) ([]float64, bool) {
	if n <= 0 || len(close) <= n || len(high) != len(close) || len(low) != len(close) {
		return nil, false
	}
	tr := TrueRange(high, low, close)
	out := nans(len(close))
	var avg float64
	for i := 1; i <= n; i++ {
		avg += tr[i]
	}
	avg /= float64(n)
	out[n] = avg
	for i := n + 1; i < len(close); i++ {
		avg = (avg*float64(n-1) + tr[i]) / float64(n)
		out[i] = avg
	}
	return out, true
}

// ADX is Wilder's average directional index. The first value appears at row 2n-1.
func ADX(high, low, close []float64, n int) ([]float64, bool) {
	if n <= 0 || len(close) < 2*n || len(high) != len(close) || len(low) != len(close) {
		return nil, false
	}
	tr := TrueRange(high, low, close)
	plusDM := make([]float64, len(close))
	minusDM := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	dx := nans(len(close))
	var sTR, sPlus, sMinus float64
	for i := 1; i < len(close); i++ {
		if i <= n {
			sTR += tr[i]
			sPlus += plusDM[i]
			sMinus += minusDM[i]
			if i < n {
				continue
			}
		} else {
			sTR = sTR - sTR/float64(n) + tr[i]
			sPlus = sPlus - sPlus/float64(n) + plusDM[i]
			sMinus = sMinus - sMinus/float64(n) + minusDM[i]
		}
		if sTR == 0 {
			dx[i] = 0
			continue
		}
		pdi := 100 * sPlus / sTR
		mdi := 100 * sMinus / sTR
		if pdi+mdi == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}

	out := nans(len(close))
	first := 2*n - 1
	var adx float64
	for i := n; i <= first; i++ {
		adx += dx[i]
	}
	adx /= float64(n)
	out[first] = adx
	for i := first + 1; i < len(close); i++ {
		adx = (adx*float64(n-1) + dx[i]) / float64(n)
		out[i] = adx
	}
	return out, true
}
