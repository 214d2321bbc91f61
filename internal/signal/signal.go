// Package signal standardizes the candidate trade payload passed from the strategy to validation and execution.
package signal

import (
	"strings"
	"time"
)

// Timeframe tags a resolution whose oversold condition held when the signal fired.
type Timeframe string

const (
	Daily   Timeframe = "daily"
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
)

// Signal is a long entry candidate at one row of the frame. It is never mutated after creation.
type Signal struct {
	Index          int         `json:"index"`
	Date           time.Time   `json:"date"`
	EntryPrice     float64     `json:"entry_price"`
	StopLoss       float64     `json:"stop_loss"`
	ExitTargetDays int         `json:"exit_target_days"`
	FramesAligned  []Timeframe `json:"frames_aligned"`
	SectorVol      float64     `json:"sector_vol"`
}

// Aligned reports whether tf was among the aligned timeframes.
func (s Signal) Aligned(tf Timeframe) bool {
	for _, f := range s.FramesAligned {
		if f == tf {
			return true
		}
	}
	return false
}

// Reason renders the aligned timeframes for logs, e.g. "daily+weekly".
func (s Signal) Reason() string {
	parts := make([]string, len(s.FramesAligned))
	for i, f := range s.FramesAligned {
		parts[i] = string(f)
	}
	return strings.Join(parts, "+")
}
