package paper

import (
	"sync"

	"meanrev-go/internal/execution"
)

// TradeRecorder captures simulated trades for later inspection.
type TradeRecorder interface {
	Record(execution.Trade) error
}

// Account compounds trade returns into an equity curve for one stock. Every trade is applied at
// full equity in exit order; there is no cash allocation between positions.
type Account struct {
	mu             sync.Mutex
	startingEquity float64
	equity         float64
	peak           float64
	maxDrawdown    float64
	trades         int
	wins           int
}

// AccountSnapshot is a read-only view of the equity curve.
type AccountSnapshot struct {
	StartingEquity float64 `json:"starting_equity"`
	Equity         float64 `json:"equity"`
	ReturnPct      float64 `json:"return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
}

// NewAccount starts a curve at startingEquity; non-positive values start at 1.
func NewAccount(startingEquity float64) *Account {
	if startingEquity <= 0 {
		startingEquity = 1
	}
	return &Account{startingEquity: startingEquity, equity: startingEquity, peak: startingEquity}
}

// Apply compounds a trade's net return into equity and updates the drawdown.
func (a *Account) Apply(t execution.Trade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.equity *= 1 + t.NetReturnPct/100
	if a.equity < 0 {
		a.equity = 0
	}
	if a.equity > a.peak {
		a.peak = a.equity
	}
	if a.peak > 0 {
		if dd := (a.peak - a.equity) / a.peak * 100; dd > a.maxDrawdown {
			a.maxDrawdown = dd
		}
	}
	a.trades++
	if t.Win() {
		a.wins++
	}
}

// Snapshot returns a copy of the curve state.
func (a *Account) Snapshot() AccountSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AccountSnapshot{
		StartingEquity: a.startingEquity,
		Equity:         a.equity,
		ReturnPct:      (a.equity/a.startingEquity - 1) * 100,
		MaxDrawdownPct: a.maxDrawdown,
		Trades:         a.trades,
		Wins:           a.wins,
	}
}
