/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics holds the Prometheus collectors for statement execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the docstore collectors. A nil *Metrics records nothing.
type Metrics struct {
	// StatementsTotal counts dispatched statements by kind and outcome.
	StatementsTotal *prometheus.CounterVec
	// StatementDuration is the time from dispatch to the last row.
	StatementDuration *prometheus.HistogramVec
	// ResultsTotal counts rows delivered to subscribers.
	ResultsTotal *prometheus.CounterVec
	// ErrorsTotal counts translated failures by error kind.
	ErrorsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_statements_total",
				Help: "Total number of statements dispatched",
			},
			[]string{"kind", "outcome"},
		),
		StatementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docstore_statement_duration_seconds",
				Help:    "Statement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		ResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_results_total",
				Help: "Total number of result rows delivered",
			},
			[]string{"kind"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_errors_total",
				Help: "Total number of translated errors",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.StatementsTotal, m.StatementDuration, m.ResultsTotal, m.ErrorsTotal)
	}
	return m
}

// ObserveStatement records one finished statement.
func (m *Metrics) ObserveStatement(kind string, started time.Time, rows int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StatementsTotal.WithLabelValues(kind, outcome).Inc()
	m.StatementDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if rows > 0 {
		m.ResultsTotal.WithLabelValues(kind).Add(float64(rows))
	}
}

// ObserveError counts a translated error by its kind label.
func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
