// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the SSO authority.

It tracks request throughput and latency on the HTTP plane plus
outcome counters for the auth operations themselves, so dashboards can
distinguish "traffic is down" from "logins are failing".
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the registry and collectors. Safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authOutcomes    *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New builds a registry with the process, Go runtime, and application
// collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	metrics := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tessera",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed, by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tessera",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency distribution, by route.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		authOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tessera",
				Subsystem: "auth",
				Name:      "operations_total",
				Help:      "Auth operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tessera",
				Subsystem: "auth",
				Name:      "sessions_last_login_active",
				Help:      "Active device sessions observed for the most recent login's user.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.requestsTotal,
		metrics.requestDuration,
		metrics.authOutcomes,
		metrics.activeSessions,
	)

	return metrics
}

// Handler serves the scrape endpoint for this registry.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request. The route label uses the chi
// pattern ("/api/v1/users/{id}"), never the raw path, to keep label
// cardinality bounded.
func (metrics *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(recorder, request)

			route := "unmatched"
			if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
				if pattern := routeContext.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			metrics.requestsTotal.WithLabelValues(
				request.Method, route, strconv.Itoa(recorder.status),
			).Inc()
			metrics.requestDuration.WithLabelValues(
				request.Method, route,
			).Observe(time.Since(startTime).Seconds())
		})
	}
}

// RecordAuthOutcome counts one auth operation result.
// Operation is one of login, exchange, refresh, logout, validate.
// Outcome is success or the error code that ended the operation.
func (metrics *Metrics) RecordAuthOutcome(operation string, outcome string) {
	metrics.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// SetActiveSessions records the session count seen on the last login.
func (metrics *Metrics) SetActiveSessions(count int) {
	metrics.activeSessions.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}
