package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelhost",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Model loads by outcome",
		},
		[]string{"model", "outcome"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelhost",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads (Initialize) in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	unloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelhost",
			Subsystem: "manager",
			Name:      "unloads_total",
			Help:      "Model unloads (Finalize)",
		},
		[]string{"model"},
	)

	inferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelhost",
			Subsystem: "inference",
			Name:      "requests_total",
			Help:      "Inference requests by outcome",
		},
		[]string{"model", "outcome"},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelhost",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Duration of successful inference requests, queueing included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, unloadsTotal, inferenceTotal, inferenceDuration)
}
