// Package metrics holds the Prometheus collectors for provider checks and the
// status HTTP service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Check outcomes.
const (
	OutcomeAvailable = "available"
	OutcomeLimited   = "limited"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Response race results.
const (
	RaceMatched = "matched"
	RaceTimeout = "timeout"
	RaceError   = "error"
)

var (
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ailimit",
			Name:      "checks_total",
			Help:      "Provider checks by outcome",
		},
		[]string{"provider", "outcome"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ailimit",
			Name:      "check_duration_seconds",
			Help:      "Provider check duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"provider"},
	)

	WaitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ailimit",
			Name:      "wait_total",
			Help:      "Terminal script waits by step and result",
		},
		[]string{"provider", "step", "result"},
	)

	ResponseRaceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ailimit",
			Name:      "response_race_total",
			Help:      "Browser response races by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ChecksTotal, CheckDuration, WaitTotal, ResponseRaceTotal)
		prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
	})
}

// ObserveCheck records one finished provider check.
func ObserveCheck(provider, outcome string, elapsed time.Duration) {
	ChecksTotal.WithLabelValues(provider, outcome).Inc()
	CheckDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveWait records the result of a script wait step.
func ObserveWait(provider, step string, matched bool) {
	result := RaceTimeout
	if matched {
		result = RaceMatched
	}
	WaitTotal.WithLabelValues(provider, step, result).Inc()
}

// ObserveRace records how a browser response race resolved.
func ObserveRace(result string) {
	ResponseRaceTotal.WithLabelValues(result).Inc()
}
