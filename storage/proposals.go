// Package storage provides proposal and policy storage for scribe using
// NATS JetStream KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/governance"
)

// Bucket names.
const (
	BucketProposals   = "SCRIBE_PROPOSALS"
	BucketPermissions = "SCRIBE_PERMISSIONS"
	BucketRoles       = "SCRIBE_ROLES"
	BucketSidecar     = "SCRIBE_SIDECAR"
)

// Store implements governance.ProposalStore and governance.PolicyReader
// on top of NATS JetStream KV buckets.
type Store struct {
	proposals   jetstream.KeyValue
	permissions jetstream.KeyValue
	roles       jetstream.KeyValue
	sidecar     jetstream.KeyValue
}

// NewStore creates a Store, creating the KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	proposals, err := getOrCreateBucket(ctx, js, BucketProposals)
	if err != nil {
		return nil, fmt.Errorf("create proposals bucket: %w", err)
	}

	permissions, err := getOrCreateBucket(ctx, js, BucketPermissions)
	if err != nil {
		return nil, fmt.Errorf("create permissions bucket: %w", err)
	}

	roles, err := getOrCreateBucket(ctx, js, BucketRoles)
	if err != nil {
		return nil, fmt.Errorf("create roles bucket: %w", err)
	}

	sidecar, err := getOrCreateBucket(ctx, js, BucketSidecar)
	if err != nil {
		return nil, fmt.Errorf("create sidecar bucket: %w", err)
	}

	return &Store{
		proposals:   proposals,
		permissions: permissions,
		roles:       roles,
		sidecar:     sidecar,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Scribe %s storage", strings.ToLower(strings.TrimPrefix(name, "SCRIBE_"))),
		History:     5, // Keep last 5 revisions
	})
}

// InsertProposal stores a new proposal and returns its ID.
func (s *Store) InsertProposal(ctx context.Context, p *governance.Proposal) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal proposal: %w", err)
	}

	if _, err := s.proposals.Create(ctx, p.ID, data); err != nil {
		return "", fmt.Errorf("store proposal: %w", err)
	}
	return p.ID, nil
}

// GetProposal retrieves a proposal by ID.
func (s *Store) GetProposal(ctx context.Context, id string) (*governance.Proposal, error) {
	entry, err := s.proposals.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, governance.ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	var p governance.Proposal
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal proposal %s: %w", id, err)
	}
	return &p, nil
}

// UpdateProposalStatus records a terminal review transition. The update
// is revision-guarded so a concurrent reviewer cannot double-fire it.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status governance.ProposalStatus, reviewerID, notes string) error {
	entry, err := s.proposals.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return governance.ErrNotFound
		}
		return fmt.Errorf("get proposal: %w", err)
	}

	var p governance.Proposal
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return fmt.Errorf("unmarshal proposal %s: %w", id, err)
	}

	if p.Status != governance.ProposalPending {
		return fmt.Errorf("proposal %s is %s: %w", id, p.Status, governance.ErrAlreadyReviewed)
	}

	now := time.Now().UTC()
	p.Status = status
	p.ReviewerID = reviewerID
	p.ReviewNotes = notes
	p.ReviewedAt = &now

	data, err := json.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}

	if _, err := s.proposals.Update(ctx, id, data, entry.Revision()); err != nil {
		return fmt.Errorf("update proposal %s: %w", id, err)
	}
	return nil
}

// ListPendingProposals returns all proposals still awaiting review for a
// project. Used by the CLI listing surface.
func (s *Store) ListPendingProposals(ctx context.Context, projectID string) ([]*governance.Proposal, error) {
	lister, err := s.proposals.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	var pending []*governance.Proposal
	for key := range lister.Keys() {
		p, err := s.GetProposal(ctx, key)
		if err != nil {
			if errors.Is(err, governance.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if p.Status == governance.ProposalPending && (projectID == "" || p.ProjectID == projectID) {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

// permissionKey builds the KV key for a (role, entity type) policy row.
func permissionKey(roleID string, entityType extraction.EntityType) string {
	return fmt.Sprintf("%s.%s", roleID, entityType)
}

// GetRolePermission looks up the policy row for a role and entity type.
// A missing row yields (nil, nil): not configured is not an error.
func (s *Store) GetRolePermission(ctx context.Context, roleID string, entityType extraction.EntityType) (*governance.RolePermission, error) {
	entry, err := s.permissions.Get(ctx, permissionKey(roleID, entityType))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role permission: %w", err)
	}

	var perm governance.RolePermission
	if err := json.Unmarshal(entry.Value(), &perm); err != nil {
		return nil, fmt.Errorf("unmarshal role permission: %w", err)
	}
	return &perm, nil
}

// PutRolePermission stores a policy row. Administrative surface, not used
// by the pipeline itself.
func (s *Store) PutRolePermission(ctx context.Context, roleID string, entityType extraction.EntityType, perm *governance.RolePermission) error {
	data, err := json.Marshal(perm)
	if err != nil {
		return fmt.Errorf("marshal role permission: %w", err)
	}
	if _, err := s.permissions.Put(ctx, permissionKey(roleID, entityType), data); err != nil {
		return fmt.Errorf("store role permission: %w", err)
	}
	return nil
}

// GetUserAuthority looks up a user's role assignment within a project.
// A missing assignment yields (nil, nil): the user has no role.
func (s *Store) GetUserAuthority(ctx context.Context, userID, projectID string) (*governance.RoleAssignment, error) {
	entry, err := s.roles.Get(ctx, fmt.Sprintf("%s.%s", projectID, userID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role assignment: %w", err)
	}

	var assignment governance.RoleAssignment
	if err := json.Unmarshal(entry.Value(), &assignment); err != nil {
		return nil, fmt.Errorf("unmarshal role assignment: %w", err)
	}
	return &assignment, nil
}

// PutRoleAssignment stores a user's role within a project.
func (s *Store) PutRoleAssignment(ctx context.Context, userID, projectID string, assignment *governance.RoleAssignment) error {
	data, err := json.Marshal(assignment)
	if err != nil {
		return fmt.Errorf("marshal role assignment: %w", err)
	}
	if _, err := s.roles.Put(ctx, fmt.Sprintf("%s.%s", projectID, userID), data); err != nil {
		return fmt.Errorf("store role assignment: %w", err)
	}
	return nil
}

// GetSidecarConfig loads a project's governance tuning, falling back to
// the documented defaults when no project-specific row exists.
func (s *Store) GetSidecarConfig(ctx context.Context, projectID string) (governance.SidecarConfig, error) {
	entry, err := s.sidecar.Get(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return governance.DefaultSidecarConfig(), nil
		}
		return governance.SidecarConfig{}, fmt.Errorf("get sidecar config: %w", err)
	}

	var cfg governance.SidecarConfig
	if err := json.Unmarshal(entry.Value(), &cfg); err != nil {
		return governance.SidecarConfig{}, fmt.Errorf("unmarshal sidecar config: %w", err)
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound)
}
