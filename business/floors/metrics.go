package floors

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FloorDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_decisions_total",
			Help: "Count of floor decisions by predictor variant and branch.",
		},
		[]string{"variant", "branch"},
	)

	FloorDecisionPropensity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floor_decision_propensity",
			Help:    "Propensity of served floor decisions.",
			Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 0.8, 0.9, 0.95, 1},
		},
		[]string{"variant"},
	)

	ModelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_model_loads_total",
			Help: "Model artifact loads by variant and result.",
		},
		[]string{"variant", "result"},
	)
)

func init() {
	prometheus.MustRegister(FloorDecisionsTotal, FloorDecisionPropensity, ModelLoadsTotal)
}

func observeDecision(d Decision) {
	FloorDecisionsTotal.WithLabelValues(string(d.Variant), string(d.Branch)).Inc()
	FloorDecisionPropensity.WithLabelValues(string(d.Variant)).Observe(d.Response.Propensity)
}
