package validate

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/c360studio/archlint/registry"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.observe(&Result{
		Violations: []Violation{
			{Severity: registry.SeverityError},
			{Severity: registry.SeverityWarning},
		},
		Suppressed: []SuppressedViolation{{}},
	})
	m.observeSkip()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.filesValidated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.filesSkipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.suppressed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.violations.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.violations.WithLabelValues("warning")))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(&Result{})
		m.observeSkip()
	})
}
