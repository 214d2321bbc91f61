package strategy

import (
	"fmt"
	"strings"

	"meanrev-go/internal/frame"
	"meanrev-go/internal/signal"
)

// Strategy produces an entry candidate for one row of a precomputed frame.
type Strategy interface {
	Generate(f *frame.Frame, index int) *signal.Signal
	Name() string
}

// Build returns the strategy implementation matching the configured mode.
func Build(mode string, params Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "meanrev", "multi_timeframe":
		return NewEngine(params), nil
	default:
		return nil, fmt.Errorf("unknown strategy mode %q", mode)
	}
}
