package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/metrics"
)

// Action is the decision-engine outcome for one entity.
type Action string

const (
	ActionAutoCreate     Action = "auto_create"
	ActionCreateProposal Action = "create_proposal"
	ActionSkip           Action = "skip"
)

// Decision is an action paired with its auditable reason.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Decision reasons. Fixed strings so decisions stay auditable and
// deterministic given fixed inputs.
const (
	ReasonNoRole               = "Submitter has no role in project"
	ReasonCriticalImpact       = "Critical impact requires review"
	ReasonHighConfidence       = "High confidence + high authority"
	ReasonPermissionAutoCreate = "Permission-based auto-create"
	ReasonLowConfidence        = "Low confidence"
	ReasonInsufficientAuth     = "Confidence sufficient but insufficient authority for auto-create"
)

// defaultHighAuthorityLevel is the authority cutoff for the global
// confidence-plus-authority auto-create rule.
const defaultHighAuthorityLevel = 4

// Engine applies the governance rules and executes the chosen path.
type Engine struct {
	store              Store
	logger             *slog.Logger
	highAuthorityLevel int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHighAuthorityLevel overrides the authority cutoff for the global
// auto-create rule.
func WithHighAuthorityLevel(level int) EngineOption {
	return func(e *Engine) {
		e.highAuthorityLevel = level
	}
}

// NewEngine creates a decision engine backed by the given store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:              store,
		logger:             slog.Default(),
		highAuthorityLevel: defaultHighAuthorityLevel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DecisionInput bundles everything DetermineAction consults.
type DecisionInput struct {
	Entity *extraction.ValidatedEntity
	// Assignment is the submitter's role; nil means no role in the project.
	Assignment *RoleAssignment
	// Permission is the (role, entity type) policy row; nil means none configured.
	Permission *RolePermission
	Sidecar    SidecarConfig
}

// decisionRule is one guard in the ordered rule list. A nil return means
// the rule does not apply and evaluation continues.
type decisionRule func(*Engine, DecisionInput) *Decision

// decisionRules is evaluated top-to-bottom with early return. The order
// is significant: the roleless-submitter precondition runs before the
// critical-impact override, which in turn dominates every later rule.
var decisionRules = []decisionRule{
	ruleNoRole,
	ruleCriticalImpact,
	ruleGlobalAutoCreate,
	rulePermissionAutoCreate,
	ruleLowConfidence,
	ruleInsufficientAuthority,
}

// DetermineAction chooses one of auto_create, create_proposal or skip for
// a validated entity. First matching rule wins.
func (e *Engine) DetermineAction(in DecisionInput) Decision {
	for _, rule := range decisionRules {
		if d := rule(e, in); d != nil {
			return *d
		}
	}
	// Unreachable: ruleInsufficientAuthority always matches.
	return Decision{Action: ActionCreateProposal, Reason: ReasonInsufficientAuth}
}

// ruleNoRole skips entities from submitters with no role assignment.
// Their entities are neither auto-created nor proposed.
func ruleNoRole(_ *Engine, in DecisionInput) *Decision {
	if in.Assignment == nil {
		return &Decision{Action: ActionSkip, Reason: ReasonNoRole}
	}
	return nil
}

// ruleCriticalImpact forces review for critical-impact entities,
// regardless of confidence or authority.
func ruleCriticalImpact(_ *Engine, in DecisionInput) *Decision {
	if in.Entity.CriticalImpact() {
		return &Decision{Action: ActionCreateProposal, Reason: ReasonCriticalImpact}
	}
	return nil
}

// ruleGlobalAutoCreate auto-creates when confidence clears the global
// threshold and the submitter holds high authority.
func ruleGlobalAutoCreate(e *Engine, in DecisionInput) *Decision {
	if in.Entity.Confidence >= in.Sidecar.AutoCreateThreshold && in.Assignment.Authority >= e.highAuthorityLevel {
		return &Decision{Action: ActionAutoCreate, Reason: ReasonHighConfidence}
	}
	return nil
}

// rulePermissionAutoCreate auto-creates when the role's policy allows it
// and confidence clears the policy's own threshold.
func rulePermissionAutoCreate(_ *Engine, in DecisionInput) *Decision {
	if in.Permission != nil && in.Permission.AutoCreateEnabled && in.Entity.Confidence >= in.Permission.AutoCreateThreshold {
		return &Decision{Action: ActionAutoCreate, Reason: ReasonPermissionAutoCreate}
	}
	return nil
}

// ruleLowConfidence proposes when confidence falls below the applicable
// threshold: the role policy's when one is configured, the global one
// otherwise.
func ruleLowConfidence(_ *Engine, in DecisionInput) *Decision {
	threshold := in.Sidecar.AutoCreateThreshold
	if in.Permission != nil {
		threshold = in.Permission.AutoCreateThreshold
	}
	if in.Entity.Confidence < threshold {
		return &Decision{Action: ActionCreateProposal, Reason: ReasonLowConfidence}
	}
	return nil
}

// ruleInsufficientAuthority is the terminal fallback: confidence was
// sufficient but neither authority nor permission allowed auto-creation.
func ruleInsufficientAuthority(_ *Engine, _ DecisionInput) *Decision {
	return &Decision{Action: ActionCreateProposal, Reason: ReasonInsufficientAuth}
}

// AutoCreateEntity writes the knowledge-graph node and its evidence record
// as a single atomic unit. On store failure nothing is written.
func (e *Engine) AutoCreateEntity(ctx context.Context, entity *extraction.ValidatedEntity, userID, projectID string, source extraction.Source) (entityID, evidenceID string, err error) {
	now := time.Now().UTC()

	evidence := &Evidence{
		ID:         uuid.New().String(),
		SourceType: source.Type,
		Platform:   source.Platform,
		ExternalID: source.ExternalID,
		Metadata:   source.Metadata,
		CreatedAt:  now,
	}

	node := &Node{
		ID:          uuid.New().String(),
		EntityType:  extraction.NormalizeEntityType(string(entity.EntityType)),
		ProjectID:   projectID,
		Payload:     *entity,
		CreatedByAI: true,
		EvidenceID:  evidence.ID,
		CreatedAt:   now,
	}

	entityID, evidenceID, err = e.store.CreateEntityWithEvidence(ctx, node, evidence)
	if err != nil {
		return "", "", fmt.Errorf("create entity: %w", err)
	}

	metrics.EntitiesCreated.WithLabelValues(node.EntityType).Inc()
	e.logger.Info("entity auto-created",
		"entity_id", entityID,
		"entity_type", node.EntityType,
		"project_id", projectID,
		"user_id", userID)

	return entityID, evidenceID, nil
}

// CreateProposal writes a pending proposal. The knowledge graph is not
// touched.
func (e *Engine) CreateProposal(ctx context.Context, entity *extraction.ValidatedEntity, userID, projectID, approvalRoleID string, source extraction.Source) (*Proposal, error) {
	p := &Proposal{
		ID:                   uuid.New().String(),
		ProjectID:            projectID,
		ProposerID:           userID,
		EntityType:           entity.EntityType,
		Entity:               *entity,
		Source:               source,
		Status:               ProposalPending,
		RequiresApprovalFrom: approvalRoleID,
		CreatedAt:            time.Now().UTC(),
	}

	id, err := e.store.InsertProposal(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("insert proposal: %w", err)
	}
	p.ID = id

	metrics.ProposalsCreated.WithLabelValues(string(entity.EntityType)).Inc()
	e.logger.Info("proposal created",
		"proposal_id", p.ID,
		"entity_type", entity.EntityType,
		"project_id", projectID,
		"requires_approval_from", approvalRoleID)

	return p, nil
}

// ProcessRequest is a batch of validated entities extracted from one
// source message.
type ProcessRequest struct {
	Entities  []extraction.ValidatedEntity
	UserID    string
	ProjectID string
	Source    extraction.Source
}

// EntityResult records the outcome for one entity in a batch.
type EntityResult struct {
	Title                string `json:"title"`
	EntityType           string `json:"entity_type"`
	Action               Action `json:"action"`
	Reason               string `json:"reason"`
	EntityID             string `json:"entity_id,omitempty"`
	EvidenceID           string `json:"evidence_id,omitempty"`
	ProposalID           string `json:"proposal_id,omitempty"`
	RequiresApprovalFrom string `json:"requires_approval_from,omitempty"`
	Error                string `json:"error,omitempty"`
}

// ProcessSummary aggregates per-action counts for a batch.
type ProcessSummary struct {
	AutoCreated int `json:"auto_created"`
	Proposals   int `json:"proposals"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// ProcessResult is the outcome of processing one message's entities.
type ProcessResult struct {
	Processed int            `json:"processed"`
	Results   []EntityResult `json:"results"`
	Summary   ProcessSummary `json:"summary"`
}

// ProcessExtractedEntities runs DetermineAction plus the chosen action for
// each entity independently. One entity's failure never aborts the batch;
// persistence failures are recorded per entity and joined into the
// returned error so the caller can retry the whole message.
func (e *Engine) ProcessExtractedEntities(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	result := &ProcessResult{Processed: len(req.Entities)}

	assignment, err := e.store.GetUserAuthority(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("look up authority for user %s: %w", req.UserID, err)
	}

	sidecar, err := e.store.GetSidecarConfig(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load sidecar config for project %s: %w", req.ProjectID, err)
	}

	var writeErrs []error

	for i := range req.Entities {
		entity := &req.Entities[i]
		res := e.processOne(ctx, entity, assignment, sidecar, req)
		if res.Error != "" {
			writeErrs = append(writeErrs, errors.New(res.Error))
			result.Summary.Failed++
		} else {
			switch res.Action {
			case ActionAutoCreate:
				result.Summary.AutoCreated++
			case ActionCreateProposal:
				result.Summary.Proposals++
			case ActionSkip:
				result.Summary.Skipped++
			}
		}
		result.Results = append(result.Results, res)
	}

	return result, errors.Join(writeErrs...)
}

// processOne decides and executes the action for a single entity.
func (e *Engine) processOne(ctx context.Context, entity *extraction.ValidatedEntity, assignment *RoleAssignment, sidecar SidecarConfig, req ProcessRequest) EntityResult {
	res := EntityResult{
		Title:      entity.Title,
		EntityType: string(entity.EntityType),
	}

	var permission *RolePermission
	if assignment != nil {
		var err error
		permission, err = e.store.GetRolePermission(ctx, assignment.RoleID, entity.EntityType)
		if err != nil {
			res.Error = fmt.Sprintf("look up role permission: %v", err)
			return res
		}
	}

	decision := e.DetermineAction(DecisionInput{
		Entity:     entity,
		Assignment: assignment,
		Permission: permission,
		Sidecar:    sidecar,
	})
	res.Action = decision.Action
	res.Reason = decision.Reason
	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()

	switch decision.Action {
	case ActionAutoCreate:
		entityID, evidenceID, err := e.AutoCreateEntity(ctx, entity, req.UserID, req.ProjectID, req.Source)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.EntityID = entityID
		res.EvidenceID = evidenceID

	case ActionCreateProposal:
		approvalRole := ""
		if permission != nil {
			approvalRole = permission.ApprovalFromRoleID
		}
		p, err := e.CreateProposal(ctx, entity, req.UserID, req.ProjectID, approvalRole, req.Source)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.ProposalID = p.ID
		res.RequiresApprovalFrom = p.RequiresApprovalFrom

	case ActionSkip:
		e.logger.Debug("entity skipped",
			"title", entity.Title,
			"reason", decision.Reason,
			"user_id", req.UserID)
	}

	return res
}
