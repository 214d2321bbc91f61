// Package report writes finished backtest results to the configured outputs.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"meanrev-go/internal/backtest"
	"meanrev-go/internal/paper"
)

// Sink consumes one stock's result.
type Sink interface {
	Write(ctx context.Context, res backtest.Result) error
}

// LogSink logs a one-line summary per stock plus the rejection funnel.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink builds a LogSink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Write logs res. Failed stocks are logged at error level with their cause.
func (s *LogSink) Write(_ context.Context, res backtest.Result) error {
	if res.Failed() {
		s.log.Error().Str("stock", res.Stock).Err(res.Err).Msg("no result")
		return nil
	}
	guards := zerolog.Dict()
	for name, n := range res.Metrics.RejectionsByGuard {
		guards.Int(name, n)
	}
	s.log.Info().
		Str("stock", res.Stock).
		Time("start", res.Start).
		Time("end", res.End).
		Int("signals", res.Metrics.PotentialSignals).
		Dict("rejected_by_guard", guards).
		Int("rejected_by_stat_gate", res.Metrics.RejectionsByStatGate).
		Int("rejected_by_confidence", res.Metrics.RejectionsByConfidence).
		Int("oracle_errors", res.Metrics.OracleErrors).
		Int("trades", res.Summary.Trades).
		Float64("win_rate", res.Summary.WinRate).
		Float64("avg_return_pct", res.Summary.AvgReturnPct).
		Float64("profit_factor", res.Summary.ProfitFactor).
		Float64("total_return_pct", res.Summary.TotalReturnPct).
		Float64("max_drawdown_pct", res.Summary.MaxDrawdownPct).
		Dur("took", res.Duration).
		Msg("backtest result")
	return nil
}

// TradeSink forwards every trade of a result to a recorder.
type TradeSink struct {
	rec paper.TradeRecorder
}

// NewTradeSink wraps rec.
func NewTradeSink(rec paper.TradeRecorder) *TradeSink {
	return &TradeSink{rec: rec}
}

// Write records the trades of res in order and stops at the first failure.
func (s *TradeSink) Write(ctx context.Context, res backtest.Result) error {
	for _, t := range res.Trades {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.rec.Record(t); err != nil {
			return fmt.Errorf("record %s trade: %w", res.Stock, err)
		}
	}
	return nil
}

// JSONLSink appends trades to a JSON lines file and owns the file handle.
type JSONLSink struct {
	*TradeSink
	rec *paper.JSONLRecorder
}

// NewJSONLSink opens path for appending.
func NewJSONLSink(path string) (*JSONLSink, error) {
	rec, err := paper.NewJSONLRecorder(path)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{TradeSink: NewTradeSink(rec), rec: rec}, nil
}

// Written counts trades appended so far.
func (s *JSONLSink) Written() int { return s.rec.Written() }

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error { return s.rec.Close() }

// Multi fans a result out to every sink. Every sink sees the result even when an earlier one fails.
type Multi []Sink

// Write calls each sink and joins their errors.
func (m Multi) Write(ctx context.Context, res backtest.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAll writes every result to sink.
func WriteAll(ctx context.Context, sink Sink, results []backtest.Result) error {
	var errs []error
	for _, res := range results {
		if err := sink.Write(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSweep logs one summary line per sweep point.
func LogSweep(log zerolog.Logger, points []backtest.SweepPoint) {
	for _, p := range points {
		log.Info().
			Str("param", p.Param).
			Float64("value", p.Value).
			Int("signals", p.Metrics.PotentialSignals).
			Int("trades", p.Summary.Trades).
			Float64("win_rate", p.Summary.WinRate).
			Float64("avg_return_pct", p.Summary.AvgReturnPct).
			Float64("profit_factor", p.Summary.ProfitFactor).
			Msg("sweep point")
	}
}
