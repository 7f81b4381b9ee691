package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/metrics"
)

// ApproveProposal transitions a pending proposal to approved and performs
// the same atomic entity+evidence write as auto-creation. A proposal that
// already left pending fails with ErrAlreadyReviewed and nothing is
// written.
func (e *Engine) ApproveProposal(ctx context.Context, id, reviewerID, notes string) (entityID, evidenceID string, err error) {
	p, err := e.store.GetProposal(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("load proposal %s: %w", id, err)
	}
	if p.Status != ProposalPending {
		return "", "", fmt.Errorf("proposal %s is %s: %w", id, p.Status, ErrAlreadyReviewed)
	}

	now := time.Now().UTC()

	evidence := &Evidence{
		ID:         uuid.New().String(),
		SourceType: p.Source.Type,
		Platform:   p.Source.Platform,
		ExternalID: p.Source.ExternalID,
		Metadata:   p.Source.Metadata,
		CreatedAt:  now,
	}

	node := &Node{
		ID:          uuid.New().String(),
		EntityType:  extraction.NormalizeEntityType(string(p.EntityType)),
		ProjectID:   p.ProjectID,
		Payload:     p.Entity,
		CreatedByAI: true,
		EvidenceID:  evidence.ID,
		CreatedAt:   now,
	}

	entityID, evidenceID, err = e.store.CreateEntityWithEvidence(ctx, node, evidence)
	if err != nil {
		return "", "", fmt.Errorf("materialize approved proposal %s: %w", id, err)
	}

	if err := e.store.UpdateProposalStatus(ctx, id, ProposalApproved, reviewerID, notes); err != nil {
		// The entity exists; the proposal record is now stale. Surface the
		// error so the caller can reconcile.
		return entityID, evidenceID, fmt.Errorf("update proposal %s after approval: %w", id, err)
	}

	metrics.ProposalsReviewed.WithLabelValues(string(ProposalApproved)).Inc()
	metrics.EntitiesCreated.WithLabelValues(node.EntityType).Inc()
	e.logger.Info("proposal approved",
		"proposal_id", id,
		"reviewer_id", reviewerID,
		"entity_id", entityID)

	return entityID, evidenceID, nil
}

// RejectProposal transitions a pending proposal to rejected. The knowledge
// graph is never touched.
func (e *Engine) RejectProposal(ctx context.Context, id, reviewerID, notes string) error {
	p, err := e.store.GetProposal(ctx, id)
	if err != nil {
		return fmt.Errorf("load proposal %s: %w", id, err)
	}
	if p.Status != ProposalPending {
		return fmt.Errorf("proposal %s is %s: %w", id, p.Status, ErrAlreadyReviewed)
	}

	if err := e.store.UpdateProposalStatus(ctx, id, ProposalRejected, reviewerID, notes); err != nil {
		return fmt.Errorf("update proposal %s: %w", id, err)
	}

	metrics.ProposalsReviewed.WithLabelValues(string(ProposalRejected)).Inc()
	e.logger.Info("proposal rejected",
		"proposal_id", id,
		"reviewer_id", reviewerID)

	return nil
}
