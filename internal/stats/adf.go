package stats

import "math"

// MacKinnon (1994) response-surface coefficients for one series with a constant term.
const (
	tauMaxC  = 2.74
	tauMinC  = -18.83
	tauStarC = -1.61
)

var (
	tauSmallPC = []float64{2.1659, 1.4412, 0.038269}
	tauLargePC = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// ADFResult is the outcome of an augmented Dickey-Fuller test with a constant.
type ADFResult struct {
	Stat    float64
	PValue  float64
	UsedLag int
	NObs    int
}

// ADF runs the augmented Dickey-Fuller unit-root test with a constant, choosing the lag order
// by AIC over 0..ceil(12*(n/100)^0.25). ok is false for empty, constant, too short or
// degenerate inputs.
func ADF(x []float64) (ADFResult, bool) {
	n := len(x)
	if n < 8 || constant(x) {
		return ADFResult{}, false
	}
	maxLag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 2; limit < maxLag {
		maxLag = limit
	}
	if maxLag < 0 {
		return ADFResult{}, false
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = x[i] - x[i-1]
	}

	bestLag, bestAIC := -1, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		y, design := adfDesign(x, diff, maxLag, lag, true)
		res, err := OLS(y, design)
		if err != nil {
			continue
		}
		if aic := res.AIC(); aic < bestAIC {
			bestAIC, bestLag = aic, lag
		}
	}
	if bestLag < 0 {
		return ADFResult{}, false
	}

	y, design := adfDesign(x, diff, bestLag, bestLag, false)
	res, err := OLS(y, design)
	if err != nil || res.StdErr[0] == 0 || math.IsNaN(res.StdErr[0]) {
		return ADFResult{}, false
	}
	stat := res.TValue(0)
	return ADFResult{Stat: stat, PValue: MacKinnonP(stat), UsedLag: bestLag, NObs: res.NObs}, true
}

// ADFPValue is a convenience wrapper returning only the p-value.
func ADFPValue(x []float64) (float64, bool) {
	res, ok := ADF(x)
	if !ok {
		return math.NaN(), false
	}
	return res.PValue, true
}

// adfDesign regresses diff[t] on the level x[t] and lag lagged differences, trimming the first
// trim observations so every candidate lag is fitted on the same sample. The constant sits first
// during lag selection and last in the final fit; the level coefficient is always recoverable.
func adfDesign(x, diff []float64, trim, lag int, constFirst bool) ([]float64, [][]float64) {
	rows := len(diff) - trim
	y := make([]float64, rows)
	design := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + trim
		y[r] = diff[t]
		row := make([]float64, 0, lag+2)
		if constFirst {
			row = append(row, 1)
		}
		row = append(row, x[t])
		for j := 1; j <= lag; j++ {
			row = append(row, diff[t-j])
		}
		if !constFirst {
			row = append(row, 1)
		}
		design[r] = row
	}
	return y, design
}

// MacKinnonP maps an ADF statistic to its approximate p-value.
func MacKinnonP(stat float64) float64 {
	if stat > tauMaxC {
		return 1
	}
	if stat < tauMinC {
		return 0
	}
	coef := tauLargePC
	if stat <= tauStarC {
		coef = tauSmallPC
	}
	return normCDF(polyval(coef, stat))
}

func polyval(coef []float64, x float64) float64 {
	var out float64
	for i := len(coef) - 1; i >= 0; i-- {
		out = out*x + coef[i]
	}
	return out
}

func normCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
