// Package metrics exposes Prometheus counters for the backtest signal funnel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "meanrev_signals_total", Help: "Potential signals produced by the signal engine"},
		[]string{"stock"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "meanrev_rejections_total", Help: "Signals rejected, by funnel stage"},
		[]string{"stock", "stage"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "meanrev_trades_total", Help: "Simulated trades executed"},
		[]string{"stock"},
	)
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "meanrev_backtest_runs_total", Help: "Per-stock backtest runs by outcome"},
		[]string{"stock", "outcome"},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "meanrev_backtest_duration_seconds", Help: "Wall time of one per-stock backtest", Buckets: prometheus.DefBuckets},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, RejectionsTotal, TradesTotal, RunsTotal, RunDuration)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
