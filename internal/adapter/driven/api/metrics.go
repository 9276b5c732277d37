package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the API client. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	Replays         prometheus.Counter
	SessionsExpired prometheus.Counter
}

// NewMetrics creates the client collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "todopanel",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "todopanel",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API attempt duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "todopanel",
				Subsystem: "api",
				Name:      "refreshes_total",
				Help:      "Credential refresh outcomes.",
			},
			[]string{"result"},
		),
		Replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "todopanel",
			Subsystem: "api",
			Name:      "replays_total",
			Help:      "Requests replayed after a credential refresh.",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "todopanel",
			Subsystem: "api",
			Name:      "sessions_expired_total",
			Help:      "Calls that ended in SessionExpired.",
		}),
	}

	reg.MustRegister(m.Requests, m.Duration, m.Refreshes, m.Replays, m.SessionsExpired)
	return m
}

// Refresh results.
const (
	refreshRenewed      = "renewed"
	refreshReused       = "reused"
	refreshFailed       = "failed"
	refreshNoCredential = "no_credential"
)

func (m *Metrics) observeAttempt(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeReplay() {
	if m == nil {
		return
	}
	m.Replays.Inc()
}

func (m *Metrics) observeSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}
