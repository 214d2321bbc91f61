// Package execution prices simulated fills with size-dependent slippage and transaction costs.
package execution

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/signal"
)

// ExitReason records how a position was closed.
type ExitReason string

const (
	// Stopped means the low breached the ATR stop.
	Stopped ExitReason = "STOPPED"
	// Timeout means the holding limit was reached without a stop.
	Timeout ExitReason = "TIMEOUT"
	// Horizon is the fixed-horizon exit used when ATR exits are off.
	Horizon ExitReason = "HORIZON"
)

// Trade is one completed simulated round trip. ExitDate is always after EntryDate.
type Trade struct {
	Stock           string         `json:"stock"`
	EntryDate       time.Time      `json:"entry_date"`
	ExitDate        time.Time      `json:"exit_date"`
	EntryPrice      float64        `json:"entry_price"`
	ExitPrice       float64        `json:"exit_price"`
	FinalEntryPrice float64        `json:"final_entry_price"`
	FinalExitPrice  float64        `json:"final_exit_price"`
	Shares          float64        `json:"shares"`
	NetReturnPct    float64        `json:"net_return_pct"`
	Confidence      float64        `json:"confidence"`
	ExitReason      ExitReason     `json:"exit_reason,omitempty"`
	Signal          *signal.Signal `json:"signal,omitempty"`
}

// Win reports whether the trade closed with a positive net return.
func (t Trade) Win() bool { return t.NetReturnPct > 0 }

// Simulator applies the slippage and cost model.
type Simulator struct {
	cfg config.Execution
	log zerolog.Logger
}

// NewSimulator wraps the execution config and a logger.
func NewSimulator(cfg config.Execution, log zerolog.Logger) *Simulator {
	return &Simulator{cfg: cfg, log: log}
}

// Slippage is impact * sqrt(shares / volume) for the configured notional, and 1 (full price)
// when volume is not positive. Shares are capped at the day's volume.
func (s *Simulator) Slippage(price, volume float64) (slip, shares float64) {
	shares = s.cfg.TradeNotional / price
	if volume <= 0 {
		return 1, shares
	}
	if shares > volume {
		shares = volume
	}
	return s.cfg.ImpactFactor * math.Sqrt(shares/volume), shares
}

// legCost is brokerage, capped, plus tax on one leg's notional.
func (s *Simulator) legCost(notional float64) float64 {
	return math.Min(s.cfg.BrokerageRate*notional, s.cfg.BrokerageCap) + s.cfg.TaxRate*notional
}

// Simulate builds a trade or returns nil when the inputs cannot produce one: non-positive entry,
// a zero final entry price or an exit not after the entry.
func (s *Simulator) Simulate(stock string, entry, exit float64, entryDate, exitDate time.Time, sig *signal.Signal, confidence, volume float64) *Trade {
	if !(entry > 0) || !exitDate.After(entryDate) {
		return nil
	}
	slip, shares := s.Slippage(entry, volume)
	slippedEntry := entry * (1 + slip)
	slippedExit := exit * (1 - slip)

	var entryCost, exitCost float64
	if shares > 0 {
		entryCost = s.legCost(shares*slippedEntry) / shares
		exitCost = s.legCost(shares*slippedExit) / shares
	}
	finalEntry := slippedEntry + entryCost
	finalExit := math.Max(slippedExit-exitCost, 0)
	if finalEntry == 0 {
		return nil
	}

	trade := &Trade{
		Stock:           stock,
		EntryDate:       entryDate,
		ExitDate:        exitDate,
		EntryPrice:      entry,
		ExitPrice:       exit,
		FinalEntryPrice: finalEntry,
		FinalExitPrice:  finalExit,
		Shares:          shares,
		NetReturnPct:    (finalExit/finalEntry - 1) * 100,
		Confidence:      confidence,
		Signal:          sig,
	}
	s.log.Debug().
		Str("stock", stock).
		Time("entry_date", entryDate).
		Time("exit_date", exitDate).
		Float64("slip", slip).
		Float64("final_entry", finalEntry).
		Float64("final_exit", finalExit).
		Float64("net_pct", trade.NetReturnPct).
		Msg("simulated trade")
	return trade
}
