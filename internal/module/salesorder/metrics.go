package salesorder

import "github.com/prometheus/client_golang/prometheus"

// Reasons a stored document is left out of a response.
const (
	skipDecode  = "decode"
	skipProject = "project"
)

// Metrics counts documents skipped while reading sales orders. A nil
// *Metrics records nothing.
type Metrics struct {
	skipped *prometheus.CounterVec
}

// NewMetrics creates the sales-order collectors and registers them with reg
// when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesorder_documents_skipped_total",
				Help: "Sales-order documents left out of a response because they could not be read",
			},
			[]string{"reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.skipped)
	}
	return m
}

func (m *Metrics) documentSkipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}
