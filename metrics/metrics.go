// Package metrics exposes prometheus collectors for the score cache, the
// data providers and backtest runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Score cache
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_cache_lookups_total",
			Help: "Score cache lookups by result (hit, miss, stale, error)",
		},
		[]string{"result"},
	)

	CacheWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screener_cache_write_failures_total",
			Help: "Score cache writes that failed and were skipped",
		},
	)

	SymbolsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_symbols_skipped_total",
			Help: "Symbols dropped from a score table by reason",
		},
		[]string{"reason"},
	)

	// Providers
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_provider_calls_total",
			Help: "External provider calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screener_provider_latency_seconds",
			Help:    "Latency of external provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	ProviderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_provider_retries_total",
			Help: "Retried provider calls",
		},
		[]string{"op"},
	)

	// Backtests
	BacktestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_backtest_runs_total",
			Help: "Backtest runs by outcome",
		},
		[]string{"outcome"},
	)

	BacktestReturn = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screener_backtest_return_pct",
			Help: "Total return of the latest backtest per symbol",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(CacheWriteFailures)
	prometheus.MustRegister(SymbolsSkipped)
	prometheus.MustRegister(ProviderCalls)
	prometheus.MustRegister(ProviderLatency)
	prometheus.MustRegister(ProviderRetries)
	prometheus.MustRegister(BacktestRuns)
	prometheus.MustRegister(BacktestReturn)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBacktest records one finished symbol run.
func RecordBacktest(symbol string, returnPct float64, err error) {
	if err != nil {
		BacktestRuns.WithLabelValues("error").Inc()
		return
	}
	BacktestRuns.WithLabelValues("ok").Inc()
	BacktestReturn.WithLabelValues(symbol).Set(returnPct)
}
