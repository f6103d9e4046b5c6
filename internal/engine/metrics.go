package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picalc_computations_total",
		Help: "The total number of processed Pi computations",
	}, []string{"algorithm", "status"})

	computationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "picalc_computation_duration_seconds",
		Help:    "The duration of Pi computations in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"algorithm"})
)
