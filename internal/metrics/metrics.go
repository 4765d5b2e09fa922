package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goodspeed"

// Variables declared for metrics.
var (
	DiscoveredModels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "discovered_models",
		Help:      "Number of usable model artifact pairs found by the last scan.",
	})

	ModelLoadCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "model_load_total",
		Help:      "Counter of the number of model loads.",
	}, []string{"model"})

	ModelLoadFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "model_load_failure_total",
		Help:      "Counter of the number of failed model loads.",
	}, []string{"model"})

	PredictionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "predict",
		Name:      "records_total",
		Help:      "Counter of the number of predicted records.",
	}, []string{"model", "mode"})

	PredictionFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "predict",
		Name:      "failure_total",
		Help:      "Counter of the number of failed predictions by error kind.",
	}, []string{"model", "kind"})

	ExportCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "total",
		Help:      "Counter of the number of exported spreadsheets.",
	}, []string{"format"})

	ExportFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "failure_total",
		Help:      "Counter of the number of failed exports.",
	}, []string{"format"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
