package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments for the points ledger.
type Metrics struct {
	paymentsRecorded   *prometheus.CounterVec
	pointsCredited     prometheus.Counter
	receiptsSubmitted  *prometheus.CounterVec
	receiptsProcessed  *prometheus.CounterVec
	candidatesApplied  *prometheus.CounterVec
	externalCallErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suiren_payments_recorded_total",
			Help: "Ledger payment rows inserted, by origin.",
		}, []string{"origin"}),
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suiren_points_credited_total",
			Help: "Total points credited across all buyers.",
		}),
		receiptsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suiren_receipts_submitted_total",
			Help: "Seller receipts submitted, by resulting status.",
		}, []string{"status"}),
		receiptsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suiren_receipts_processed_total",
			Help: "Receipt reconciliations, by trigger.",
		}, []string{"trigger"}),
		candidatesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suiren_analysis_candidates_total",
			Help: "Screenshot-analysis candidates handled, by outcome.",
		}, []string{"outcome"}),
		externalCallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suiren_external_call_errors_total",
			Help: "Failed calls to external collaborators, by provider.",
		}, []string{"provider"}),
	}

	collectors := []prometheus.Collector{
		m.paymentsRecorded,
		m.pointsCredited,
		m.receiptsSubmitted,
		m.receiptsProcessed,
		m.candidatesApplied,
		m.externalCallErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) RecordPayment(origin string, amount int64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(normalize(origin)).Inc()
	m.pointsCredited.Add(float64(amount))
}

func (m *Metrics) RecordReceiptSubmitted(status string) {
	if m == nil {
		return
	}
	m.receiptsSubmitted.WithLabelValues(normalize(status)).Inc()
}

func (m *Metrics) RecordReceiptProcessed(trigger string) {
	if m == nil {
		return
	}
	m.receiptsProcessed.WithLabelValues(normalize(trigger)).Inc()
}

func (m *Metrics) RecordCandidate(outcome string) {
	if m == nil {
		return
	}
	m.candidatesApplied.WithLabelValues(normalize(outcome)).Inc()
}

func (m *Metrics) RecordExternalCallError(provider string) {
	if m == nil {
		return
	}
	m.externalCallErrors.WithLabelValues(normalize(provider)).Inc()
}

func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	return reg
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer {
	return reg
}

// Module wires the metrics registry and instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(provideRegistry),
	fx.Provide(provideRegisterer),
	fx.Provide(New),
	fx.Provide(NewHTTPMetrics),
)
