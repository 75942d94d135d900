package githubapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	pagesFetchedCounter   *prometheus.CounterVec
	rateLimitHitCounter   prometheus.Counter
	transientRetryCounter prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.pagesFetchedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_crawler_pages_fetched_count",
		Help: "The number of page fetches by final outcome",
	}, []string{"outcome"})

	metrics.rateLimitHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpi_crawler_rate_limit_hit_count",
		Help: "The number of responses resolved through token rotation or reset sleep",
	})

	metrics.transientRetryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpi_crawler_transient_retry_count",
		Help: "The number of retried transient failures (5xx or connection errors)",
	})

	return metrics
}

var (
	metrics = NewMetrics()
)
