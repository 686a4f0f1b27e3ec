// Package metrics exposes the crawl/dispatch observability counters spec
// §4.3 requires (aggregate success/failure counts, pages-per-second), wired
// with prometheus/client_golang per the DOMAIN STACK. Grounded on
// Tsuchiya2-catchup-feed-backend/internal/observability/metrics/registry.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrawlAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepresearch_crawl_attempts_total",
		Help: "Total number of crawl attempts by outcome.",
	}, []string{"outcome"}) // outcome: success|timeout|error

	CrawlDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepresearch_crawl_duration_seconds",
		Help:    "Per-URL crawl duration.",
		Buckets: prometheus.DefBuckets,
	})

	SummarizeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepresearch_summarize_attempts_total",
		Help: "Total number of per-page summarization attempts by outcome.",
	}, []string{"outcome"}) // outcome: started|success|fallback

	DispatchQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepresearch_dispatch_queries_total",
		Help: "Total number of dispatched search queries by outcome.",
	}, []string{"outcome"}) // outcome: success|error

	ActiveCrawls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deepresearch_active_crawls",
		Help: "Number of crawl tasks currently in flight.",
	})
)
