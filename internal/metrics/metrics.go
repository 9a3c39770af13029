// Package metrics holds the Prometheus collectors of a lattice process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several instances (tests, embedded
// workspaces) never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	// Diagram operations
	Validations *prometheus.CounterVec
	Issues      *prometheus.CounterVec
	Imports     *prometheus.CounterVec
	Exports     *prometheus.CounterVec

	// Store operations, fed by the persistence metrics middleware
	StoreOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of diagram validations by outcome",
			},
			[]string{"outcome"},
		),
		Issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of validation issues by severity",
			},
			[]string{"severity"},
		),
		Imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of diagram imports",
			},
			[]string{"format", "status"},
		),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of diagram exports",
			},
			[]string{"format", "status"},
		),
		StoreOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of key-value store operations",
			},
			[]string{"operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Key-value store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.Validations,
		c.Issues,
		c.Imports,
		c.Exports,
		c.StoreOps,
		c.StoreDuration,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordValidation counts one validation run and its issues.
func (c *Collector) RecordValidation(valid bool, errors, warnings int) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	c.Validations.WithLabelValues(outcome).Inc()
	c.Issues.WithLabelValues("error").Add(float64(errors))
	c.Issues.WithLabelValues("warning").Add(float64(warnings))
}

// RecordImport counts one import attempt.
func (c *Collector) RecordImport(format string, err error) {
	c.Imports.WithLabelValues(format, status(err)).Inc()
}

// RecordExport counts one export attempt.
func (c *Collector) RecordExport(format string, err error) {
	c.Exports.WithLabelValues(format, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
