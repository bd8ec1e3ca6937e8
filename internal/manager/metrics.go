package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufchat",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ggufchat",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	generatedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ggufchat",
			Subsystem: "manager",
			Name:      "generated_tokens_total",
			Help:      "Tokens received from the engine",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufchat",
			Subsystem: "manager",
			Name:      "generations_total",
			Help:      "Completed generations by finish reason",
		},
		[]string{"reason"},
	)

	modelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ggufchat",
			Subsystem: "manager",
			Name:      "model_loaded",
			Help:      "1 while a model handle is live",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, generatedTokens, generationsTotal, modelLoaded)
}
