// Package paper keeps the simulated trade history: the causal performance ledger, the equity
// account and the JSONL trade recorder.
package paper

import (
	"sort"
	"sync"
	"time"
)

// MaxProfitFactor caps the profit factor when a sample has gains and no losses.
const MaxProfitFactor = 100

// Entry is one closed trade as seen by the ledger.
type Entry struct {
	ExitDate  time.Time `json:"exit_date"`
	ReturnPct float64   `json:"return_pct"`
}

// Snapshot summarizes every entry that exited strictly before Date.
type Snapshot struct {
	Date         time.Time `json:"date"`
	WinRate      float64   `json:"win_rate"`
	ProfitFactor float64   `json:"profit_factor"`
	SampleSize   int       `json:"sample_size"`
}

// Ledger is an append-only list of closed trades.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{entries: make([]Entry, 0, capacity)}
}

// Record appends a closed trade.
func (l *Ledger) Record(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SnapshotAt summarizes entries with ExitDate before date. Entries on date itself are excluded
// even when already recorded.
func (l *Ledger) SnapshotAt(date time.Time) Snapshot {
	return SnapshotFrom(l.Entries(), date)
}

// SnapshotFrom is the pure form of SnapshotAt. The result does not depend on entry order and
// ignores entries exiting on or after date.
func SnapshotFrom(entries []Entry, date time.Time) Snapshot {
	past := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ExitDate.Before(date) {
			past = append(past, e)
		}
	}
	sort.Slice(past, func(i, j int) bool {
		if !past[i].ExitDate.Equal(past[j].ExitDate) {
			return past[i].ExitDate.Before(past[j].ExitDate)
		}
		return past[i].ReturnPct < past[j].ReturnPct
	})

	snap := Snapshot{Date: date, SampleSize: len(past)}
	if len(past) == 0 {
		return snap
	}
	var wins int
	var gains, losses float64
	for _, e := range past {
		switch {
		case e.ReturnPct > 0:
			wins++
			gains += e.ReturnPct
		case e.ReturnPct < 0:
			losses -= e.ReturnPct
		}
	}
	snap.WinRate = float64(wins) / float64(len(past))
	snap.ProfitFactor = ProfitFactor(gains, losses)
	return snap
}

// ProfitFactor is gains / losses, capped at MaxProfitFactor. Both arguments are non-negative sums.
func ProfitFactor(gains, losses float64) float64 {
	if losses == 0 {
		if gains > 0 {
			return MaxProfitFactor
		}
		return 0
	}
	pf := gains / losses
	if pf > MaxProfitFactor {
		return MaxProfitFactor
	}
	return pf
}
