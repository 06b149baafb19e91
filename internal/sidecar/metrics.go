package sidecar

import "github.com/prometheus/client_golang/prometheus"

var (
	spawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kayad",
			Subsystem: "sidecar",
			Name:      "spawns_total",
			Help:      "Total sidecar process spawn attempts",
		},
		[]string{"outcome"},
	)

	roundTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kayad",
			Subsystem: "sidecar",
			Name:      "round_trips_total",
			Help:      "Total protocol round trips by command",
		},
		[]string{"cmd", "outcome"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kayad",
			Subsystem: "sidecar",
			Name:      "command_duration_seconds",
			Help:      "Duration of sidecar protocol round trips in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"cmd"},
	)
)

func init() {
	prometheus.MustRegister(spawnsTotal, roundTripsTotal, commandDuration)
}
