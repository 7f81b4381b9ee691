// Package metrics exposes Prometheus instrumentation for the extraction
// and governance pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts pipeline runs by provider and outcome.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "extractions_total",
		Help:      "Extraction pipeline runs by provider and outcome.",
	}, []string{"provider", "outcome"})

	// InvokeDuration observes wall-clock time spent in provider calls,
	// including retries and backoff.
	InvokeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scribe",
		Name:      "invoke_duration_seconds",
		Help:      "Provider invocation duration including retries.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider"})

	// ProviderErrors counts classified gateway failures.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "provider_errors_total",
		Help:      "Classified provider errors by kind.",
	}, []string{"provider", "kind"})

	// EntitiesDropped counts candidates rejected by validation.
	EntitiesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "entities_dropped_total",
		Help:      "Candidate entities dropped by validation, by cause.",
	}, []string{"cause"})

	// DecisionsTotal counts decision-engine outcomes.
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "decisions_total",
		Help:      "Decision engine outcomes by action.",
	}, []string{"action"})

	// EntitiesCreated counts knowledge-graph writes by entity type.
	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "entities_created_total",
		Help:      "Knowledge-graph entities created, by type.",
	}, []string{"entity_type"})

	// ProposalsCreated counts proposals raised for review.
	ProposalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "proposals_created_total",
		Help:      "Proposals raised for human review, by entity type.",
	}, []string{"entity_type"})

	// ProposalsReviewed counts terminal proposal transitions.
	ProposalsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribe",
		Name:      "proposals_reviewed_total",
		Help:      "Proposal reviews by terminal status.",
	}, []string{"status"})
)
