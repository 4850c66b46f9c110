// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels are bounded: room kinds, game families, and fixed reason strings only.
var (
	RoomsOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_rooms_open",
		Help: "Rooms currently held by the registry",
	}, []string{"kind"})

	RoomsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_rooms_created_total",
		Help: "Rooms created since start",
	}, []string{"kind"})

	RoomsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_rooms_reaped_total",
		Help: "Rooms destroyed by the reaper",
	})

	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent stepping every room of a family in one tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016},
	}, []string{"family"})

	RoomsTicked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_rooms_ticked",
		Help: "Rooms stepped during the last tick",
	}, []string{"family"})

	TickFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_tick_faults_total",
		Help: "Room steps that panicked and were skipped",
	}, []string{"family"})

	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_matches_finished_total",
		Help: "Matches that reached a terminal state",
	}, []string{"kind", "reason"}) // reason: "score", "forfeit", "abandoned"

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_persist_failures_total",
		Help: "Persistence calls that failed and were dropped",
	}, []string{"op"})

	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_websocket_connections_active",
		Help: "Currently open websocket connections",
	})

	WSMessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_websocket_messages_dropped_total",
		Help: "Messages dropped on the way in or out",
	}, []string{"reason"}) // reason: "rate_limit", "slow_consumer", "invalid"

	ConnectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "HTTP requests or upgrades rejected before reaching a handler",
	}, []string{"reason"}) // reason: "rate_limit", "too_many_connections", "upgrade"
)
