/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStatement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStatement("delete", time.Now(), 2, nil)
	m.ObserveStatement("delete", time.Now(), 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("delete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("delete", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResultsTotal.WithLabelValues("delete")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StatementDuration))
}

func TestObserveError(t *testing.T) {
	m := New(nil)
	m.ObserveError("backend-execution")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("backend-execution")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStatement("select", time.Now(), 1, nil)
		m.ObserveError("connection")
	})
}
