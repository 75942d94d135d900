package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	itemsAcceptedCounter  *prometheus.CounterVec
	itemsDuplicateCounter *prometheus.CounterVec
	itemsDroppedCounter   *prometheus.CounterVec
	syncsAbortedCounter   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.itemsAcceptedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_crawler_items_accepted_count",
		Help: "The number of new items written to the sink by resource",
	}, []string{"resource"})

	metrics.itemsDuplicateCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_crawler_items_duplicate_count",
		Help: "The number of refetched items already present in the sink",
	}, []string{"resource"})

	metrics.itemsDroppedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_crawler_items_dropped_count",
		Help: "The number of malformed records dropped during parsing",
	}, []string{"resource"})

	metrics.syncsAbortedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_crawler_syncs_aborted_count",
		Help: "The number of sync sequences aborted by permanent errors",
	}, []string{"resource"})

	return metrics
}

var (
	metrics = NewMetrics()
)
