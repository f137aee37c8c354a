package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records reconciliation outcomes per channel.
type SettlementMetrics struct {
	applied   *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	discarded *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_applied_total",
		Help: "Ledger entries transitioned to paid.",
	}, []string{"channel"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_duplicate_total",
		Help: "Settlement signals observed after the entry was already paid.",
	}, []string{"channel"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_webhook_discarded_total",
		Help: "Webhook events discarded without mutation.",
	}, []string{"reason"})
	reg.MustRegister(applied, duplicate, discarded)
	return &SettlementMetrics{
		applied:   applied,
		duplicate: duplicate,
		discarded: discarded,
	}
}

// IncApplied increments the applied counter for the named channel.
func (m *SettlementMetrics) IncApplied(channel string) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncDuplicate increments the duplicate counter for the named channel.
func (m *SettlementMetrics) IncDuplicate(channel string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncDiscarded increments the discard counter for the given reason.
func (m *SettlementMetrics) IncDiscarded(reason string) {
	if m == nil || m.discarded == nil {
		return
	}
	m.discarded.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
