package validate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts validation activity. All counters are optional: a nil
// *Metrics is a no-op so library callers pay nothing for observability they
// did not ask for.
type Metrics struct {
	filesValidated prometheus.Counter
	filesSkipped   prometheus.Counter
	violations     *prometheus.CounterVec
	suppressed     prometheus.Counter
}

// NewMetrics registers validation counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		filesValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archlint",
			Name:      "files_validated_total",
			Help:      "Files validated against an architecture.",
		}),
		filesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archlint",
			Name:      "files_skipped_total",
			Help:      "Files skipped for lack of an architecture tag.",
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archlint",
			Name:      "violations_total",
			Help:      "Unsuppressed violations by severity.",
		}, []string{"severity"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archlint",
			Name:      "violations_suppressed_total",
			Help:      "Violations suppressed by a valid override.",
		}),
	}
	reg.MustRegister(m.filesValidated, m.filesSkipped, m.violations, m.suppressed)
	return m
}

func (m *Metrics) observe(res *Result) {
	if m == nil {
		return
	}
	m.filesValidated.Inc()
	for _, v := range res.Violations {
		m.violations.WithLabelValues(string(v.Severity)).Inc()
	}
	m.suppressed.Add(float64(len(res.Suppressed)))
}

func (m *Metrics) observeSkip() {
	if m == nil {
		return
	}
	m.filesSkipped.Inc()
}
