// Package backtest runs the causal walk-forward loop per stock, in parallel across stocks, and
// drives one-parameter sensitivity sweeps.
package backtest

import (
	"math"
	"time"

	"meanrev-go/internal/execution"
	"meanrev-go/internal/paper"
	"meanrev-go/internal/risk"
)

// Metrics counts the reported signal funnel. Counters only ever grow.
type Metrics struct {
	PotentialSignals       int            `json:"potential_signals"`
	RejectionsByGuard      map[string]int `json:"rejections_by_guard"`
	RejectionsByStatGate   int            `json:"rejections_by_stat_gate"`
	RejectionsByConfidence int            `json:"rejections_by_confidence"`
	OracleErrors           int            `json:"oracle_errors"`
	TradesExecuted         int            `json:"trades_executed"`
}

// NewMetrics returns zeroed metrics with every guard present.
func NewMetrics() Metrics {
	return Metrics{RejectionsByGuard: map[string]int{
		risk.LiquidityName: 0,
		risk.RegimeName:    0,
		risk.StatName:      0,
	}}
}

// Add folds o into m.
func (m *Metrics) Add(o Metrics) {
	if m.RejectionsByGuard == nil {
		m.RejectionsByGuard = make(map[string]int, len(o.RejectionsByGuard))
	}
	m.PotentialSignals += o.PotentialSignals
	for k, v := range o.RejectionsByGuard {
		m.RejectionsByGuard[k] += v
	}
	m.RejectionsByStatGate += o.RejectionsByStatGate
	m.RejectionsByConfidence += o.RejectionsByConfidence
	m.OracleErrors += o.OracleErrors
	m.TradesExecuted += o.TradesExecuted
}

// Summary aggregates a trade list.
type Summary struct {
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	AvgReturnPct   float64 `json:"avg_return_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// Summarize compounds trades in exit order. An empty list yields a zero summary.
func Summarize(trades []execution.Trade) Summary {
	if len(trades) == 0 {
		return Summary{}
	}
	ordered := append([]execution.Trade(nil), trades...)
	sortByExit(ordered)

	account := paper.NewAccount(1)
	var sum, gains, losses float64
	for _, t := range ordered {
		account.Apply(t)
		sum += t.NetReturnPct
		if t.NetReturnPct > 0 {
			gains += t.NetReturnPct
		} else {
			losses += math.Abs(t.NetReturnPct)
		}
	}
	snap := account.Snapshot()
	return Summary{
		Trades:         len(ordered),
		WinRate:        float64(snap.Wins) / float64(len(ordered)),
		AvgReturnPct:   sum / float64(len(ordered)),
		ProfitFactor:   paper.ProfitFactor(gains, losses),
		TotalReturnPct: snap.ReturnPct,
		MaxDrawdownPct: snap.MaxDrawdownPct,
	}
}

// Result is one stock's backtest. Err is set when the stock produced nothing because its data
// or precomputation failed.
type Result struct {
	Stock    string            `json:"stock"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Trades   []execution.Trade `json:"trades"`
	Metrics  Metrics           `json:"metrics"`
	Summary  Summary           `json:"summary"`
	Duration time.Duration     `json:"duration"`
	Err      error             `json:"-"`
}

// Failed reports whether the run errored.
func (r Result) Failed() bool { return r.Err != nil }

func emptyResult(stock string, err error) Result {
	return Result{Stock: stock, Trades: []execution.Trade{}, Metrics: NewMetrics(), Err: err}
}
