// Package metrics holds the Prometheus collectors for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. All methods are safe on a nil receiver so
// services can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	Completions        *prometheus.CounterVec
	PointsAwarded      prometheus.Counter
	BonusClaims        *prometheus.CounterVec
	Redemptions        *prometheus.CounterVec
	PointsRedeemed     prometheus.Counter
	StorageRetries     prometheus.Counter
	ActiveSessions     prometheus.Gauge
	LeaderboardRebuild prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghozi_completions_total",
				Help: "Completion attempts applied to the ledger by result",
			},
			[]string{"result"},
		),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghozi_points_awarded_total",
			Help: "Points credited by completions and bonuses",
		}),
		BonusClaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghozi_bonus_claims_total",
				Help: "Bonus offer claims by result",
			},
			[]string{"result"},
		),
		Redemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghozi_redemptions_total",
				Help: "Redemption requests by result",
			},
			[]string{"result"},
		),
		PointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghozi_points_redeemed_total",
			Help: "Points debited by accepted redemptions",
		}),
		StorageRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghozi_storage_retries_total",
			Help: "Retried atomic user updates",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ghozi_active_sessions",
			Help: "Level attempts currently playing",
		}),
		LeaderboardRebuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghozi_leaderboard_rebuild_seconds",
			Help:    "Time spent rebuilding the leaderboard snapshot",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.Completions,
		m.PointsAwarded,
		m.BonusClaims,
		m.Redemptions,
		m.PointsRedeemed,
		m.StorageRetries,
		m.ActiveSessions,
		m.LeaderboardRebuild,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (for tests)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// CompletionApplied records an accepted completion
func (m *Metrics) CompletionApplied(points int) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues("accepted").Inc()
	m.PointsAwarded.Add(float64(points))
}

// CompletionRejected records a completion refused by validation or the gate
func (m *Metrics) CompletionRejected(reason string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(reason).Inc()
}

// BonusClaimed records a bonus claim result
func (m *Metrics) BonusClaimed(result string, points int) {
	if m == nil {
		return
	}
	m.BonusClaims.WithLabelValues(result).Inc()
	if points > 0 {
		m.PointsAwarded.Add(float64(points))
	}
}

// RedemptionRecorded records a redemption result
func (m *Metrics) RedemptionRecorded(result string, points int) {
	if m == nil {
		return
	}
	m.Redemptions.WithLabelValues(result).Inc()
	if points > 0 {
		m.PointsRedeemed.Add(float64(points))
	}
}

// StorageRetried records one retry of an atomic update
func (m *Metrics) StorageRetried() {
	if m == nil {
		return
	}
	m.StorageRetries.Inc()
}

// SessionStarted increments the active session gauge
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// LeaderboardRebuilt records the duration of a snapshot rebuild
func (m *Metrics) LeaderboardRebuilt(duration time.Duration) {
	if m == nil {
		return
	}
	m.LeaderboardRebuild.Observe(duration.Seconds())
}
