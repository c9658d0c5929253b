package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ViolationsTotal counts reported violations by kind and whether they counted toward the threshold.
	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exstem",
		Subsystem: "proctor",
		Name:      "violations_total",
		Help:      "Integrity violations reported by proctored sessions.",
	}, []string{"kind", "counted"})

	TerminationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exstem",
		Subsystem: "proctor",
		Name:      "terminations_total",
		Help:      "Ended proctored sessions by cause.",
	}, []string{"cause"})

	ResultPersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exstem",
		Subsystem: "results",
		Name:      "persist_total",
		Help:      "Result persistence attempts by outcome.",
	}, []string{"outcome"})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "exstem",
		Subsystem: "proctor",
		Name:      "live_sessions",
		Help:      "Sessions currently registered.",
	})

	CollaboratorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exstem",
		Subsystem: "platform",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to platform collaborators.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "status"})
)
