package metrics

/*
domcrawl — bulk DNS and WHOIS audit for lists of domains
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	// Lookup metrics, labelled by record type (NS, A, MX, WHOIS)
	LookupDuration *prometheus.HistogramVec
	LookupsTotal   *prometheus.CounterVec
	LookupErrors   *prometheus.CounterVec

	// Pipeline metrics
	DomainsProcessed prometheus.Counter
	RowsWritten      prometheus.Counter
	LabelsAssigned   *prometheus.CounterVec
	RunDuration      prometheus.Gauge
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// Registry exposes the private registry, mostly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// newMetrics creates and registers all metrics
func newMetrics() *Metrics {
	// WHOIS referrals can take several seconds; DNS answers usually take milliseconds.
	buckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	return &Metrics{
		LookupDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domcrawl_lookup_duration_seconds",
				Help:    "Time spent on a single lookup",
				Buckets: buckets,
			},
			[]string{"record_type"},
		),
		LookupsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcrawl_lookups_total",
				Help: "Total number of lookups",
			},
			[]string{"record_type", "status"},
		),
		LookupErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcrawl_lookup_errors_total",
				Help: "Total number of failed lookups by failure kind",
			},
			[]string{"record_type", "error_type"},
		),
		DomainsProcessed: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "domcrawl_domains_processed_total",
				Help: "Total number of domains resolved and classified",
			},
		),
		RowsWritten: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "domcrawl_rows_written_total",
				Help: "Total number of report rows written",
			},
		),
		LabelsAssigned: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domcrawl_labels_assigned_total",
				Help: "Classification labels assigned, by column",
			},
			[]string{"column", "label"},
		),
		RunDuration: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "domcrawl_run_duration_seconds",
				Help: "Wall time of the last completed run",
			},
		),
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics
func StartMetricsServer(addr string) error {
	if !metricsEnabled {
		return nil
	}

	metricsInitialized.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			zap.L().Info("starting metrics server", zap.String("addr", addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Error("metrics server error", zap.Error(err))
			}
		}()
	})

	return nil
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		zap.L().Debug("shutting down metrics server")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		histogram.With(labels).Observe(duration.Seconds())
	}
}

// RecordLookup counts one finished lookup; errorType is empty on success.
func (m *Metrics) RecordLookup(recordType, errorType string) {
	if !metricsEnabled {
		return
	}

	if errorType == "" {
		m.LookupsTotal.WithLabelValues(recordType, "ok").Inc()
		return
	}
	m.LookupsTotal.WithLabelValues(recordType, "error").Inc()
	m.LookupErrors.WithLabelValues(recordType, errorType).Inc()
}

// RecordDomain counts a domain whose lookups and classification finished.
func (m *Metrics) RecordDomain() {
	if !metricsEnabled {
		return
	}

	m.DomainsProcessed.Inc()
}

// RecordRow counts a written row and its two labels.
func (m *Metrics) RecordRow(hosting, email string) {
	if !metricsEnabled {
		return
	}

	m.RowsWritten.Inc()
	m.LabelsAssigned.WithLabelValues("hosting", hosting).Inc()
	m.LabelsAssigned.WithLabelValues("email", email).Inc()
}

// ObserveRun records the wall time of a finished run.
func (m *Metrics) ObserveRun(elapsed time.Duration) {
	if !metricsEnabled {
		return
	}

	m.RunDuration.Set(elapsed.Seconds())
}
