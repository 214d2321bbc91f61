// Package stats implements the statistical tests used to qualify mean-reverting price windows.
package stats

import (
	"errors"
	"math"
)

// ErrSingular is returned when the design matrix has no unique least-squares solution.
var ErrSingular = errors.New("stats: singular design matrix")

// OLSResult holds an ordinary least squares fit.
type OLSResult struct {
	Beta   []float64
	StdErr []float64
	SSR    float64
	NObs   int
	LogL   float64
}

// AIC is -2 log-likelihood plus twice the number of regressors.
func (r OLSResult) AIC() float64 {
	return -2*r.LogL + 2*float64(len(r.Beta))
}

// TValue is the t statistic of coefficient j.
func (r OLSResult) TValue(j int) float64 {
	return r.Beta[j] / r.StdErr[j]
}

// OLS fits y on the columns of x (row-major, every row the same width).
func OLS(y []float64, x [][]float64) (OLSResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return OLSResult{}, errors.New("stats: mismatched regression inputs")
	}
	k := len(x[0])
	if k == 0 || n <= k {
		return OLSResult{}, errors.New("stats: not enough observations")
	}

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for r := 0; r < n; r++ {
		row := x[r]
		for i := 0; i < k; i++ {
			xty[i] += row[i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invert(xtx)
	if err != nil {
		return OLSResult{}, err
	}
	beta := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}

	var ssr float64
	for r := 0; r < n; r++ {
		fit := 0.0
		for i := 0; i < k; i++ {
			fit += x[r][i] * beta[i]
		}
		e := y[r] - fit
		ssr += e * e
	}
	sigma2 := ssr / float64(n-k)
	se := make([]float64, k)
	for i := 0; i < k; i++ {
		se[i] = math.Sqrt(sigma2 * inv[i][i])
	}
	nf := float64(n)
	logL := -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	return OLSResult{Beta: beta, StdErr: se, SSR: ssr, NObs: n, LogL: logL}, nil
}

// invert runs Gauss-Jordan elimination with partial pivoting.
func invert(a [][]float64) ([][]float64, error) {
	k := len(a)
	m := make([][]float64, k)
	var scale float64
	for i := range a {
		m[i] = make([]float64, 2*k)
		copy(m[i], a[i])
		m[i][k+i] = 1
		for _, v := range a[i] {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale == 0 {
		return nil, ErrSingular
	}
	tol := 1e-12 * scale
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) <= tol {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]
		p := m[col][col]
		for j := range m[col] {
			m[col][j] /= p
		}
		for r := 0; r < k; r++ {
			if r == col || m[r][col] == 0 {
				continue
			}
			f := m[r][col]
			for j := range m[r] {
				m[r][j] -= f * m[col][j]
			}
		}
	}
	out := make([][]float64, k)
	for i := range m {
		out[i] = m[i][k:]
	}
	return out, nil
}
