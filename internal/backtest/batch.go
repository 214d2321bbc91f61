package backtest

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"meanrev-go/internal/config"
	"meanrev-go/internal/execution"
)

// Workers resolves the per-stock parallelism: app.workers when set, else min(stocks, GOMAXPROCS).
func Workers(cfg config.App, stocks int) int {
	n := cfg.Workers
	if n <= 0 {
		n = min(stocks, runtime.GOMAXPROCS(0))
	}
	return max(n, 1)
}

// RunBatch backtests every stock in parallel. Results keep the input order and a failing stock
// only affects its own slot.
func (r *Runner) RunBatch(ctx context.Context, stocks []string) []Result {
	results := make([]Result, len(stocks))
	if len(stocks) == 0 {
		return results
	}
	var g errgroup.Group
	g.SetLimit(Workers(r.cfg.App, len(stocks)))
	for i, stock := range stocks {
		cfg := *r.cfg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = emptyResult(stock, err)
				return nil
			}
			results[i] = r.run(ctx, &cfg, stock)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SweepPoint is the batch outcome for one parameter value.
type SweepPoint struct {
	Param   string   `json:"param"`
	Value   float64  `json:"value"`
	Results []Result `json:"results"`
	Metrics Metrics  `json:"metrics"`
	Summary Summary  `json:"summary"`
}

// Sweep re-runs the batch for each value of one registered parameter and restores the original
// value on return, including on error.
func (r *Runner) Sweep(ctx context.Context, stocks []string, s config.Sensitivity) ([]SweepPoint, error) {
	param, err := config.LookupParam(s.Param)
	if err != nil {
		return nil, err
	}
	values, err := param.Values(s.Start, s.End, s.Step)
	if err != nil {
		return nil, err
	}
	original := param.Get(r.cfg)
	defer param.Set(r.cfg, original)

	points := make([]SweepPoint, 0, len(values))
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		param.Set(r.cfg, v)
		if err := r.cfg.Validate(); err != nil {
			return points, fmt.Errorf("sweep %s=%v: %w", param.Name, v, err)
		}
		results := r.RunBatch(ctx, stocks)
		point := SweepPoint{Param: param.Name, Value: param.Get(r.cfg), Results: results, Metrics: NewMetrics()}
		var trades []execution.Trade
		for _, res := range results {
			point.Metrics.Add(res.Metrics)
			trades = append(trades, res.Trades...)
		}
		point.Summary = Summarize(trades)
		r.log.Info().
			Str("param", param.Name).
			Float64("value", point.Value).
			Int("trades", point.Summary.Trades).
			Float64("win_rate", point.Summary.WinRate).
			Float64("avg_return_pct", point.Summary.AvgReturnPct).
			Msg("sweep point complete")
		points = append(points, point)
	}
	return points, nil
}
