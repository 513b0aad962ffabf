// Package metrics exposes service-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandsCompleted counts hands that reached a result.
	HandsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "hands_completed_total",
		Help:      "Number of hands finished across all tables.",
	})

	// CommandsHandled counts edge commands by name and outcome.
	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poker",
		Name:      "commands_handled_total",
		Help:      "Number of edge commands processed.",
	}, []string{"command", "outcome"})

	// LiveTables tracks hydrated table engines.
	LiveTables = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poker",
		Name:      "live_tables",
		Help:      "Number of table engines resident in memory.",
	})

	// OpenSockets tracks connected websocket subscribers.
	OpenSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poker",
		Name:      "open_websockets",
		Help:      "Number of open websocket subscriptions.",
	})
)
