// Package governance implements the rule-based decision engine and the
// proposal lifecycle that gate extracted entities before they reach the
// knowledge graph.
package governance

import (
	"context"
	"errors"
	"time"

	"github.com/teamscribe/scribe/extraction"
)

// Store-level errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyReviewed is returned on a second transition attempt against
	// a proposal that already left pending status.
	ErrAlreadyReviewed = errors.New("proposal already reviewed")
)

// RolePermission is the per-(role, entity type) policy row. Configured
// data: read-only to this package.
type RolePermission struct {
	CanCreate           bool    `json:"can_create"`
	AutoCreateEnabled   bool    `json:"auto_create_enabled"`
	AutoCreateThreshold float64 `json:"auto_create_threshold"`
	RequiresApproval    bool    `json:"requires_approval"`
	ApprovalFromRoleID  string  `json:"approval_from_role_id"`
}

// RoleAssignment is a user's role within a project, with its numeric
// authority rank.
type RoleAssignment struct {
	RoleID    string `json:"role_id"`
	Authority int    `json:"authority"`
}

// SidecarConfig is per-project governance tuning.
type SidecarConfig struct {
	AutoCreateThreshold float64  `json:"auto_create_threshold"`
	DetectionTypes      []string `json:"detection_types"`
}

// DefaultSidecarConfig is the documented fallback when a project has no
// configuration row of its own.
func DefaultSidecarConfig() SidecarConfig {
	return SidecarConfig{
		AutoCreateThreshold: 0.8,
		DetectionTypes:      []string{"decision", "risk", "task", "action_item"},
	}
}

// ProposalStatus is the proposal lifecycle state.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a pending entity awaiting human review. Transitions
// pending→approved and pending→rejected are each terminal and single-fire.
type Proposal struct {
	ID                   string                     `json:"id"`
	ProjectID            string                     `json:"project_id"`
	ProposerID           string                     `json:"proposer_id"`
	EntityType           extraction.EntityType      `json:"entity_type"`
	Entity               extraction.ValidatedEntity `json:"entity"`
	Source               extraction.Source          `json:"source"`
	Status               ProposalStatus             `json:"status"`
	RequiresApprovalFrom string                     `json:"requires_approval_from,omitempty"`
	ReviewerID           string                     `json:"reviewer_id,omitempty"`
	ReviewNotes          string                     `json:"review_notes,omitempty"`
	CreatedAt            time.Time                  `json:"created_at"`
	ReviewedAt           *time.Time                 `json:"reviewed_at,omitempty"`
}

// Evidence is the immutable provenance record linking a created entity to
// its originating source message. Written atomically with every node.
type Evidence struct {
	ID         string            `json:"id"`
	SourceType string            `json:"source_type"`
	Platform   string            `json:"platform,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Node is a materialized knowledge-graph entity. Type and identity are
// immutable once created.
type Node struct {
	ID          string                     `json:"id"`
	EntityType  string                     `json:"entity_type"` // lower_snake_case
	ProjectID   string                     `json:"project_id"`
	Payload     extraction.ValidatedEntity `json:"payload"`
	CreatedByAI bool                       `json:"created_by_ai"`
	EvidenceID  string                     `json:"evidence_id"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// GraphWriter persists entities into the knowledge graph. CreateEntity
// writes the node and its evidence as a single atomic unit; there is no
// entity without evidence.
type GraphWriter interface {
	CreateEntityWithEvidence(ctx context.Context, node *Node, evidence *Evidence) (entityID, evidenceID string, err error)
}

// ProposalStore persists proposals and their lifecycle transitions.
type ProposalStore interface {
	InsertProposal(ctx context.Context, p *Proposal) (string, error)
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status ProposalStatus, reviewerID, notes string) error
}

// PolicyReader provides the read-only policy lookups the decision engine
// consults. A nil result with nil error means "not configured".
type PolicyReader interface {
	GetRolePermission(ctx context.Context, roleID string, entityType extraction.EntityType) (*RolePermission, error)
	GetUserAuthority(ctx context.Context, userID, projectID string) (*RoleAssignment, error)
	GetSidecarConfig(ctx context.Context, projectID string) (SidecarConfig, error)
}

// Store is the full persistence surface consumed by the engine.
type Store interface {
	GraphWriter
	ProposalStore
	PolicyReader
}
