package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reconcileTotal counts application reconciliations by result
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_reconcile_total",
		Help: "Total application reconciliations by result",
	}, []string{"result"})

	// accessorErrors counts failed remote calls by accessor
	accessorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_accessor_errors_total",
		Help: "Total failed remote calls by accessor",
	}, []string{"accessor"})

	// updateTotal counts update triggers by result
	updateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_update_total",
		Help: "Total application update triggers by result",
	}, []string{"result"})

	// updateDuration tracks how long a host takes to accept an update
	updateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radar_update_duration_seconds",
		Help:    "Update trigger duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})
)

const (
	accessorHost   = "host"
	accessorGitLab = "gitlab"
)
