// Package risk scores entry signals with a fixed set of guards and folds them into a composite score.
package risk

import (
	"math"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/signal"
)

// LinearScore maps v onto [0,1]: 0 at min, 1 at max, linear in between. When min > max lower
// values score higher. When min == max the score steps to 1 at v >= min. NaN scores 0.
func LinearScore(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if min > max {
		return 1 - LinearScore(v, max, min)
	}
	if min == max {
		if v >= min {
			return 1
		}
		return 0
	}
	return clamp((v - min) / (max - min))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Scores are the per-guard scores for one signal plus their product.
type Scores struct {
	Liquidity float64 `json:"liquidity"`
	Regime    float64 `json:"regime"`
	Stat      float64 `json:"stat"`
	Composite float64 `json:"composite"`
}

// Allow reports whether the composite clears min.
func (s Scores) Allow(min float64) bool {
	return s.Composite >= min
}

// Weakest names the guard with the lowest score; ties go to the earlier guard.
func (s Scores) Weakest() string {
	name, low := LiquidityName, s.Liquidity
	if s.Regime < low {
		name, low = RegimeName, s.Regime
	}
	if s.Stat < low {
		name = StatName
	}
	return name
}

// Service runs every guard at one row.
type Service struct {
	liquidity *LiquidityGuard
	regime    *RegimeGuard
	stat      *StatGuard
}

// NewService builds the guard set from configuration.
func NewService(g config.Guards, s config.Strategy) *Service {
	return &Service{
		liquidity: NewLiquidityGuard(g.Liquidity),
		regime:    NewRegimeGuard(g.Regime),
		stat:      NewStatGuard(g.Stat, s.StatWindow, s.HurstMaxLag),
	}
}

// Guards lists the guards in attribution order.
func (s *Service) Guards() []Guard {
	return []Guard{s.liquidity, s.regime, s.stat}
}

// Validate scores sig at row index. Guards only read rows <= index.
func (s *Service) Validate(f *frame.Frame, index int, sig *signal.Signal) Scores {
	out := Scores{
		Liquidity: s.liquidity.Score(f, index, sig),
		Regime:    s.regime.Score(f, index, sig),
		Stat:      s.stat.Score(f, index, sig),
	}
	out.Composite = out.Liquidity * out.Regime * out.Stat
	return out
}

// ValidateLatest scores sig against the last row of f. It exists for callers that hold a frame
// truncated at the signal date and is otherwise identical to Validate.
func (s *Service) ValidateLatest(f *frame.Frame, sig *signal.Signal) Scores {
	return s.Validate(f, f.Len()-1, sig)
}

// StatValid is the strict boolean stationarity gate at index.
func (s *Service) StatValid(f *frame.Frame, index int) bool {
	return s.stat.IsValid(f, index)
}
