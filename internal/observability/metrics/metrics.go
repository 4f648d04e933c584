// Package metrics exposes application-level prometheus instruments.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures engine health signals: write throughput per object kind
// and governance rejections.
type Metrics struct {
	entityUpserts       *prometheus.CounterVec
	relationshipUpserts *prometheus.CounterVec
	transactionsPosted  *prometheus.CounterVec
	transactionsReversed *prometheus.CounterVec
	guardrailRejections *prometheus.CounterVec
	rateLimitDenied     *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		entityUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_entity_upserts_total",
			Help: "Entity create/update operations by entity type.",
		}, []string{"entity_type"}),
		relationshipUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_relationship_upserts_total",
			Help: "Relationship upserts by relationship type.",
		}, []string{"relationship_type"}),
		transactionsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_transactions_posted_total",
			Help: "Transactions posted by transaction type.",
		}, []string{"transaction_type"}),
		transactionsReversed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_transactions_reversed_total",
			Help: "Transactions reversed by transaction type.",
		}, []string{"transaction_type"}),
		guardrailRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_guardrail_rejections_total",
			Help: "Posts rejected by a guardrail tag check, by transaction type.",
		}, []string{"transaction_type"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heracore_rate_limit_denied_total",
			Help: "Requests denied by the posting rate limiter, by route.",
		}, []string{"route"}),
	}

	for _, collector := range []prometheus.Collector{
		m.entityUpserts,
		m.relationshipUpserts,
		m.transactionsPosted,
		m.transactionsReversed,
		m.guardrailRejections,
		m.rateLimitDenied,
	} {
		if err := registerer.Register(collector); err != nil {
			// Re-registration happens when tests build multiple apps against
			// the default registerer.
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return m
}

func (m *Metrics) RecordEntityUpsert(entityType string) {
	if m == nil {
		return
	}
	m.entityUpserts.WithLabelValues(normalizeLabel(entityType)).Inc()
}

func (m *Metrics) RecordRelationshipUpsert(relationshipType string) {
	if m == nil {
		return
	}
	m.relationshipUpserts.WithLabelValues(normalizeLabel(relationshipType)).Inc()
}

func (m *Metrics) RecordTransactionPosted(transactionType string) {
	if m == nil {
		return
	}
	m.transactionsPosted.WithLabelValues(normalizeLabel(transactionType)).Inc()
}

func (m *Metrics) RecordTransactionReversed(transactionType string) {
	if m == nil {
		return
	}
	m.transactionsReversed.WithLabelValues(normalizeLabel(transactionType)).Inc()
}

func (m *Metrics) RecordGuardrailRejection(transactionType string) {
	if m == nil {
		return
	}
	m.guardrailRejections.WithLabelValues(normalizeLabel(transactionType)).Inc()
}

func (m *Metrics) RecordRateLimitDenied(route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(normalizeLabel(route)).Inc()
}

// normalizeLabel keeps label cardinality bounded: empty and whitespace-only
// values collapse to "unknown".
func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
