package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/execution"
	"meanrev-go/internal/frame"
	"meanrev-go/internal/marketdata"
	"meanrev-go/internal/metrics"
	"meanrev-go/internal/oracle"
	"meanrev-go/internal/paper"
	"meanrev-go/internal/precompute"
	"meanrev-go/internal/risk"
	"meanrev-go/internal/signal"
	"meanrev-go/internal/strategy"
)

// Runner owns the shared configuration and collaborators. Each stock run works on its own copy
// of the configuration.
type Runner struct {
	cfg      *config.Config
	provider marketdata.Provider
	oracle   oracle.Oracle
	log      zerolog.Logger
}

// NewRunner wires a runner. A nil oracle falls back to oracle.Bypass.
func NewRunner(cfg *config.Config, provider marketdata.Provider, orc oracle.Oracle, log zerolog.Logger) *Runner {
	if orc == nil {
		orc = oracle.Bypass{}
	}
	return &Runner{cfg: cfg, provider: provider, oracle: orc, log: log}
}

// Config exposes the shared configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Run backtests one stock with a snapshot of the current configuration. Failures come back as an
// empty result with Err set; they never panic out.
func (r *Runner) Run(ctx context.Context, stock string) Result {
	cfg := *r.cfg
	return r.run(ctx, &cfg, stock)
}

func (r *Runner) run(ctx context.Context, cfg *config.Config, stock string) (res Result) {
	log := r.log.With().Str("stock", stock).Logger()
	began := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = emptyResult(stock, fmt.Errorf("backtest panic: %v", p))
		}
		res.Duration = time.Since(began)
		metrics.RunDuration.Observe(res.Duration.Seconds())
		outcome := "ok"
		if res.Failed() {
			outcome = "error"
			log.Error().Err(res.Err).Msg("backtest failed, stock contributes no trades")
		}
		metrics.RunsTotal.WithLabelValues(stock, outcome).Inc()
	}()

	start, end, err := cfg.Data.Range()
	if err != nil {
		return emptyResult(stock, err)
	}
	raw, err := r.provider.Get(ctx, stock, start, end, cfg.Data.SectorTicker)
	if err != nil {
		return emptyResult(stock, fmt.Errorf("fetch %s: %w", stock, err))
	}
	if raw.Len() == 0 {
		return emptyResult(stock, fmt.Errorf("fetch %s: %w", stock, marketdata.ErrNoData))
	}
	f, err := precompute.New(precompute.ParamsFrom(cfg.Strategy), log).Run(raw)
	if err != nil {
		return emptyResult(stock, fmt.Errorf("precompute %s: %w", stock, err))
	}

	w, err := newWalk(cfg, f, stock, log)
	if err != nil {
		return emptyResult(stock, err)
	}
	snapshots := w.bookkeeping()
	res = w.report(ctx, snapshots, r.oracle)
	res.Start, res.End = f.Date(0), f.Date(f.Len()-1)
	res.Summary = Summarize(res.Trades)
	log.Info().
		Int("signals", res.Metrics.PotentialSignals).
		Int("trades", res.Metrics.TradesExecuted).
		Float64("win_rate", res.Summary.WinRate).
		Float64("avg_return_pct", res.Summary.AvgReturnPct).
		Msg("backtest complete")
	return res
}

// walk holds everything one stock's loop reads. Nothing in it is shared across stocks.
type walk struct {
	cfg    *config.Config
	f      *frame.Frame
	stock  string
	engine strategy.Strategy
	guards *risk.Service
	sim    *execution.Simulator
	log    zerolog.Logger
}

func newWalk(cfg *config.Config, f *frame.Frame, stock string, log zerolog.Logger) (*walk, error) {
	engine, err := strategy.Build(cfg.Strategy.Mode, strategy.ParamsFrom(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	return &walk{
		cfg:    cfg,
		f:      f,
		stock:  stock,
		engine: engine,
		guards: risk.NewService(cfg.Guards, cfg.Strategy),
		sim:    execution.NewSimulator(cfg.Execution, log),
		log:    log,
	}, nil
}

// causalState is the accumulator threaded through the bookkeeping pass: closed trades in the
// ledger and open trades waiting for their exit date.
type causalState struct {
	ledger   *paper.Ledger
	inflight []execution.Trade
}

// drain moves every open trade exiting on date into the ledger.
func (s causalState) drain(date time.Time) causalState {
	open := s.inflight[:0]
	for _, t := range s.inflight {
		if t.ExitDate.Equal(date) {
			s.ledger.Record(paper.Entry{ExitDate: t.ExitDate, ReturnPct: t.NetReturnPct})
			continue
		}
		open = append(open, t)
	}
	s.inflight = open
	return s
}

func (s causalState) open(t execution.Trade) causalState {
	s.inflight = append(s.inflight, t)
	return s
}

// bookkeeping is the first pass: it simulates every pre-filtered signal with its composite score
// as confidence and records, for each row from min_history_days on, the performance snapshot of
// trades closed strictly before that row's date.
func (w *walk) bookkeeping() map[int]paper.Snapshot {
	n := w.f.Len()
	snapshots := make(map[int]paper.Snapshot, n)
	state := causalState{ledger: paper.NewLedger(0)}
	for i := w.cfg.Backtest.MinHistoryDays; i < n; i++ {
		date := w.f.Date(i)
		state = state.drain(date)
		snapshots[i] = state.ledger.SnapshotAt(date)
		if i == n-1 {
			break
		}
		sig := w.engine.Generate(w.f, i)
		if sig == nil {
			continue
		}
		scores := w.guards.Validate(w.f, i, sig)
		if !scores.Allow(w.cfg.Backtest.MinCompositeScore) {
			continue
		}
		if t := w.trade(sig, scores.Composite); t != nil {
			state = state.open(*t)
		}
	}
	return snapshots
}

// trade resolves the exit for sig and prices the round trip.
func (w *walk) trade(sig *signal.Signal, confidence float64) *execution.Trade {
	exit, ok := DetermineExit(w.f, sig, w.cfg.Exit)
	if !ok {
		return nil
	}
	volume, _ := w.f.Value(frame.Volume, sig.Index)
	t := w.sim.Simulate(w.stock, sig.EntryPrice, exit.Price, sig.Date, w.f.Date(exit.Index), sig, confidence, volume)
	if t != nil {
		t.ExitReason = exit.Reason
	}
	return t
}

// report is the second pass: the reported funnel with the oracle and confidence gate.
func (w *walk) report(ctx context.Context, snapshots map[int]paper.Snapshot, orc oracle.Oracle) Result {
	res := Result{Stock: w.stock, Trades: []execution.Trade{}, Metrics: NewMetrics()}
	m := &res.Metrics
	for i := w.cfg.Backtest.MinHistoryDays; i < w.f.Len()-1; i++ {
		sig := w.engine.Generate(w.f, i)
		if sig == nil {
			continue
		}
		m.PotentialSignals++
		metrics.SignalsTotal.WithLabelValues(w.stock).Inc()

		scores := w.guards.Validate(w.f, i, sig)
		if !scores.Allow(w.cfg.Backtest.MinCompositeScore) {
			weakest := scores.Weakest()
			m.RejectionsByGuard[weakest]++
			metrics.RejectionsTotal.WithLabelValues(w.stock, weakest).Inc()
			continue
		}
		if w.cfg.Backtest.StrictStatGate && !w.guards.StatValid(w.f, i) {
			m.RejectionsByStatGate++
			metrics.RejectionsTotal.WithLabelValues(w.stock, "stat_gate").Inc()
			continue
		}

		confidence, err := orc.Score(ctx, oracle.Request{
			Stock:      w.stock,
			Date:       sig.Date,
			Historical: snapshots[i],
			Signal:     sig,
			Scores:     scores,
			Window:     w.f.Bars(i-w.cfg.Oracle.WindowDays+1, i),
		})
		if err != nil {
			m.OracleErrors++
			metrics.RejectionsTotal.WithLabelValues(w.stock, "oracle_error").Inc()
			w.log.Warn().Err(err).Time("date", sig.Date).Msg("oracle failed, skipping signal")
			continue
		}
		if confidence < w.cfg.Backtest.ConfidenceThreshold {
			m.RejectionsByConfidence++
			metrics.RejectionsTotal.WithLabelValues(w.stock, "confidence").Inc()
			continue
		}

		t := w.trade(sig, confidence)
		if t == nil {
			continue
		}
		res.Trades = append(res.Trades, *t)
		m.TradesExecuted++
		metrics.TradesTotal.WithLabelValues(w.stock).Inc()
		w.log.Debug().
			Time("entry", t.EntryDate).
			Time("exit", t.ExitDate).
			Str("reason", string(t.ExitReason)).
			Str("frames", sig.Reason()).
			Float64("net_pct", t.NetReturnPct).
			Msg("trade recorded")
	}
	return res
}
