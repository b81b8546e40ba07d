// Package metrics exposes sidecar lifecycle counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	starts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sidecar",
		Name:      "starts_total",
		Help:      "Sidecar start attempts by result (spawned, not_found, spawn_failed, aborted).",
	}, []string{"result"})

	readiness = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sidecar",
		Name:      "readiness_total",
		Help:      "Readiness polling outcomes (ready, timed-out).",
	}, []string{"outcome"})

	readinessLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sidecar",
		Name:      "readiness_seconds",
		Help:      "Time from spawn until the first successful readiness probe.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15},
	})

	probeAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sidecar",
		Name:      "probe_attempts_total",
		Help:      "Readiness probe attempts across all polling loops.",
	})

	stops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sidecar",
		Name:      "stops_total",
		Help:      "Stop requests by result (stopped, error, noop).",
	}, []string{"result"})

	running = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sidecar",
		Name:      "running",
		Help:      "1 while the supervisor owns a live sidecar process.",
	})
)

func init() {
	registry.MustRegister(starts, readiness, readinessLatency, probeAttempts, stops, running)
}

// Registry returns the registry holding the sidecar metrics.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the sidecar registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncStart counts a start attempt.
func IncStart(result string) {
	starts.WithLabelValues(result).Inc()
}

// ObserveReadiness records one polling loop.
func ObserveReadiness(outcome string, attempts int, elapsed time.Duration) {
	readiness.WithLabelValues(outcome).Inc()
	probeAttempts.Add(float64(attempts))
	if outcome == "ready" {
		readinessLatency.Observe(elapsed.Seconds())
	}
}

// IncStop counts a stop request.
func IncStop(result string) {
	stops.WithLabelValues(result).Inc()
}

// SetRunning flips the running gauge.
func SetRunning(v bool) {
	if v {
		running.Set(1)
		return
	}
	running.Set(0)
}
