package models

import (
	"github.com/aukilabs/askr/spatial"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
)

var (
	footprintCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "footprint_count",
		Help: "The number of indexed footprints.",
	})

	footprintCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footprint_count_total",
		Help: "The total number of footprints indexed.",
	})

	footprintRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footprint_rejected_total",
		Help: "The total number of footprints the index rejected.",
	}, []string{errTypeLabel})

	indexNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_node_count",
		Help: "The number of nodes in the spatial index.",
	})

	indexDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_depth",
		Help: "The depth of the spatial index.",
	})

	indexGrowCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_grow_count",
		Help: "The number of times the indexed region doubled.",
	})
)

func instrumentFootprintAdded(stats spatial.Stats) {
	footprintCount.Set(float64(stats.Primitives))
	footprintCountTotal.Inc()
	indexNodeCount.Set(float64(stats.Nodes))
	indexDepth.Set(float64(stats.Depth))
	indexGrowCount.Set(float64(stats.Grows))
}

func instrumentFootprintRejected(errType string) {
	footprintRejectedTotal.
		With(prometheus.Labels{errTypeLabel: errType}).
		Inc()
}
