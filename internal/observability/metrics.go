package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HoldsGranted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_holds_granted_total",
			Help: "Seat holds granted, including TTL refreshes",
		},
	)

	HoldConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_hold_conflicts_total",
			Help: "Hold requests refused because the seat was held or sold",
		},
	)

	HoldsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatinv_holds_released_total",
			Help: "Holds released, by cause",
		},
		[]string{"cause"}, // explicit, expired, disconnect, commit
	)

	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatinv_commits_total",
			Help: "Booking group commits, by outcome",
		},
		[]string{"outcome"}, // ok, unavailable, version_conflict, error
	)

	ReaperSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_reaper_sweeps_total",
			Help: "Expiry reaper ticks completed",
		},
	)

	ReapedHolds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_reaped_holds_total",
			Help: "Expired holds reclaimed by the reaper",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatinv_events_published_total",
			Help: "Broadcast events handed to the transport",
		},
		[]string{"kind"}, // seat, batch, booking, system
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_events_dropped_total",
			Help: "Broadcast events dropped on transport failure or full queue",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seatinv_db_tx_seconds",
			Help:    "Duration of seat store transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatinv_sessions_active",
			Help: "Connected terminal sessions",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatinv_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
