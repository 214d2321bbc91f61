package backtest

import (
	"sort"

	"meanrev-go/internal/config"
	"meanrev-go/internal/execution"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/precompute"
	"meanrev-go/internal/signal"
)

// Exit is the resolved close of a position opened at a signal row.
type Exit struct {
	Index  int
	Price  float64
	Reason execution.ExitReason
}

// DetermineExit walks a long position forward from sig.Index. With ATR exits on and an ATR value
// at the signal row, the position holds until the low touches entry - ATR*multiplier (exit at the
// stop) or max_holding_days pass (exit at that bar's close). Otherwise it exits at the close
// exit_target_days bars later. Both are cut at the last bar. ok is false when no later bar exists.
func DetermineExit(f *frame.Frame, sig *signal.Signal, cfg config.Exit) (Exit, bool) {
	i := sig.Index
	last := f.Len() - 1
	if i < 0 || i >= last {
		return Exit{}, false
	}
	closes, _ := f.Column(frame.Close)

	if atr, ok := f.Value(precompute.ATR, i); cfg.UseATR && ok {
		stop := sig.EntryPrice - atr*cfg.ATRMultiplier
		bound := min(i+cfg.MaxHoldingDays, last)
		if bound <= i {
			return Exit{}, false
		}
		lows, _ := f.Column(frame.Low)
		for j := i + 1; j <= bound; j++ {
			if lows[j] <= stop {
				return Exit{Index: j, Price: stop, Reason: execution.Stopped}, true
			}
		}
		return Exit{Index: bound, Price: closes[bound], Reason: execution.Timeout}, true
	}

	j := min(i+sig.ExitTargetDays, last)
	if j <= i {
		return Exit{}, false
	}
	return Exit{Index: j, Price: closes[j], Reason: execution.Horizon}, true
}

func sortByExit(trades []execution.Trade) {
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].ExitDate.Before(trades[j].ExitDate) })
}
