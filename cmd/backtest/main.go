// Binary backtest runs the walk-forward mean-reversion backtest over the configured stocks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meanrev-go/internal/backtest"
	"meanrev-go/internal/config"
	"meanrev-go/internal/marketdata"
	"meanrev-go/internal/metrics"
	"meanrev-go/internal/oracle"
	"meanrev-go/internal/report"
	"meanrev-go/internal/util"
)

func main() {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	envFile    string
	stocks     []string
	tradesPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "backtest",
		Short:         "Walk-forward mean-reversion backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file with secrets")
	root.PersistentFlags().StringSliceVar(&opts.stocks, "stocks", nil, "override data.stocks")
	root.PersistentFlags().StringVar(&opts.tradesPath, "trades", "", "override report.trades_path")
	root.AddCommand(newRunCmd(opts), newSweepCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Backtest every configured stock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.close()

			results := app.runner.RunBatch(cmd.Context(), app.stocks)
			if err := report.WriteAll(cmd.Context(), app.sink, results); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			failed := 0
			for _, res := range results {
				if res.Failed() {
					failed++
				}
			}
			app.log.Info().Int("stocks", len(results)).Int("failed", failed).Msg("run complete")
			return nil
		},
	}
}

func newSweepCmd(opts *options) *cobra.Command {
	var s config.Sensitivity
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-run the batch across a range of one parameter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.close()

			sens := app.cfg.Sensitivity
			flags := cmd.Flags()
			if flags.Changed("param") {
				sens.Param = s.Param
			}
			if flags.Changed("start") {
				sens.Start = s.Start
			}
			if flags.Changed("end") {
				sens.End = s.End
			}
			if flags.Changed("step") {
				sens.Step = s.Step
			}
			if sens.Param == "" {
				return errors.New("sweep: no parameter given, set sensitivity.param or --param")
			}

			points, err := app.runner.Sweep(cmd.Context(), app.stocks, sens)
			report.LogSweep(app.log, points)
			if err != nil {
				return err
			}
			for _, p := range points {
				if err := report.WriteAll(cmd.Context(), app.sink, p.Results); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&s.Param, "param", "", "dotted parameter name, e.g. exit.atr_multiplier")
	cmd.Flags().Float64Var(&s.Start, "start", 0, "first value")
	cmd.Flags().Float64Var(&s.End, "end", 0, "last value (inclusive)")
	cmd.Flags().Float64Var(&s.Step, "step", 0, "increment")
	return cmd
}

type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	runner  *backtest.Runner
	sink    report.Sink
	stocks  []string
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}

func setup(ctx context.Context, opts *options) (*app, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if opts.tradesPath != "" {
		cfg.Report.TradesPath = opts.tradesPath
	}
	if len(opts.stocks) > 0 {
		cfg.Data.Stocks = opts.stocks
	}
	if len(cfg.Data.Stocks) == 0 {
		return nil, errors.New("no stocks configured")
	}

	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", cfg.App.Name).Logger()
	a := &app{cfg: cfg, log: log, stocks: cfg.Data.Stocks}

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		a.closers = append(a.closers, func() error {
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	provider, closeProvider, err := marketdata.NewProvider(ctx, cfg.Data, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeProvider)

	sinks := report.Multi{report.NewLogSink(log)}
	if cfg.Report.TradesPath != "" {
		jsonl, err := report.NewJSONLSink(cfg.Report.TradesPath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			log.Info().Str("path", cfg.Report.TradesPath).Int("trades", jsonl.Written()).Msg("trades written")
			return jsonl.Close()
		})
		sinks = append(sinks, jsonl)
	}
	a.sink = sinks
	a.runner = backtest.NewRunner(cfg, provider, oracle.New(cfg.Oracle, log), log)
	log.Info().Int("stocks", len(a.stocks)).Int("workers", backtest.Workers(cfg.App, len(a.stocks))).Bool("oracle", cfg.Oracle.Enabled).Msg("backtest configured")
	return a, nil
}
