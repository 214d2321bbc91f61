package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/backtest"
	"meanrev-go/internal/config"
	"meanrev-go/internal/execution"
	"meanrev-go/internal/marketdata"
	"meanrev-go/internal/report"
)

func hashNoise(i int) float64 {
	v := math.Sin(float64(i)*12.9898) * 43758.5453
	return v - math.Floor(v) - 0.5
}

// writeCSV writes n business days from 2020-01-01 with closes from px.
func writeCSV(t *testing.T, path string, n int, px func(i int) float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		c := px(i)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,1000000\n", d.Format(time.DateOnly), c, c+1, c-1, c)
		i++
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func dropAndRecover(i int) float64 {
	switch {
	case i == 280:
		return 80
	case i > 280 && i <= 285:
		return []float64{86, 92, 96, 99, 100}[i-281]
	}
	return 100 + 0.5*math.Sin(float64(i)) + 0.3*hashNoise(i)
}

func TestCSVToJSONLReport(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "DROP.csv"), 300, dropAndRecover)
	writeCSV(t, filepath.Join(dir, "SECTOR.csv"), 300, func(i int) float64 { return 1000 + 5*hashNoise(i+7) })

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Data.SectorTicker = "SECTOR"
	cfg.Data.Cache.Enabled = true
	cfg.Strategy.WeeklyBandLength = 4
	cfg.Strategy.MonthlyBandLength = 6
	cfg.Strategy.RequireMonthly = config.Bool(false)
	cfg.Guards.Liquidity.Turnover = config.Bounds{}
	cfg.Guards.Regime.SectorVol = config.Bounds{}
	cfg.Guards.Stat.PValue = config.Bounds{}
	cfg.Guards.Stat.Hurst = config.Bounds{}
	cfg.Backtest.MinHistoryDays = 150
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ctx := context.Background()
	provider, closeProvider, err := marketdata.NewProvider(ctx, cfg.Data, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer closeProvider()

	tradesPath := filepath.Join(dir, "out", "trades.jsonl")
	jsonl, err := report.NewJSONLSink(tradesPath)
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}
	sink := report.Multi{report.NewLogSink(zerolog.Nop()), jsonl}

	runner := backtest.NewRunner(cfg, provider, nil, zerolog.Nop())
	results := runner.RunBatch(ctx, []string{"DROP", "MISSING"})
	if err := report.WriteAll(ctx, sink, results); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := jsonl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if results[0].Failed() || len(results[0].Trades) != 2 {
		t.Fatalf("expected two trades for DROP, got %d err=%v", len(results[0].Trades), results[0].Err)
	}
	if !results[1].Failed() || len(results[1].Trades) != 0 {
		t.Fatalf("missing stock must fail on its own")
	}

	file, err := os.Open(tradesPath)
	if err != nil {
		t.Fatalf("open trades: %v", err)
	}
	defer file.Close()
	var trades []execution.Trade
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var tr execution.Trade
		if err := json.Unmarshal(scanner.Bytes(), &tr); err != nil {
			t.Fatalf("decode trade: %v", err)
		}
		trades = append(trades, tr)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades in report, got %d", len(trades))
	}
	for _, tr := range trades {
		if tr.Stock != "DROP" || !tr.ExitDate.After(tr.EntryDate) || tr.Signal == nil {
			t.Fatalf("unexpected trade %+v", tr)
		}
		if tr.Signal.SectorVol <= 0 {
			t.Fatalf("expected sector volatility from the sector file, got %.4f", tr.Signal.SectorVol)
		}
	}

	// Second run is served from the cache and must agree.
	again := runner.Run(ctx, "DROP")
	if len(again.Trades) != 2 || again.Trades[0].NetReturnPct != results[0].Trades[0].NetReturnPct {
		t.Fatalf("cached run diverged")
	}
}
