package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics tracks order settlement outcomes.
type SettlementMetrics struct {
	completed *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewSettlementMetrics registers settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_completed_total",
		Help: "Orders completed by settlement, by payment method.",
	}, []string{"method"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_duplicate_total",
		Help: "Settlement calls collapsed onto an existing order.",
	}, []string{"source"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failed_total",
		Help: "Settlement attempts that did not produce an order.",
	}, []string{"reason"})
	reg.MustRegister(completed, duplicate, failed)
	return &SettlementMetrics{completed: completed, duplicate: duplicate, failed: failed}
}

func (m *SettlementMetrics) IncCompleted(method string) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.WithLabelValues(normalizeLabel(method)).Inc()
}

func (m *SettlementMetrics) IncDuplicate(source string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *SettlementMetrics) IncFailed(reason string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// PayoutMetrics tracks payout state machine transitions.
type PayoutMetrics struct {
	transitions *prometheus.CounterVec
}

// NewPayoutMetrics registers payout counters on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transition_total",
		Help: "Payout status transitions.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions)
	return &PayoutMetrics{transitions: transitions}
}

func (m *PayoutMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, normalizeLabel(to)).Inc()
}
