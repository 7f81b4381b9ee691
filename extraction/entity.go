// Package extraction implements the message-to-entity pipeline: context
// assembly, provider-specific prompt construction, and validation of
// generator output into trusted entities.
package extraction

import (
	"strings"
	"unicode"
)

// EntityType is the closed set of entity kinds the pipeline recognizes.
// Generator output uses an open string; ParseEntityType is the only way in.
type EntityType string

const (
	EntityTypeDecision   EntityType = "decision"
	EntityTypeRisk       EntityType = "risk"
	EntityTypeTask       EntityType = "task"
	EntityTypeActionItem EntityType = "action_item"
)

// ParseEntityType normalizes a generator-supplied type name and reports
// whether it is one of the recognized kinds. "ActionItem", "action item"
// and "action_item" all resolve to EntityTypeActionItem.
func ParseEntityType(s string) (EntityType, bool) {
	normalized := NormalizeEntityType(s)
	switch t := EntityType(normalized); t {
	case EntityTypeDecision, EntityTypeRisk, EntityTypeTask, EntityTypeActionItem:
		return t, true
	default:
		return "", false
	}
}

// NormalizeEntityType converts an entity type name to the graph's internal
// lower_snake_case form: "ActionItem" becomes "action_item".
func NormalizeEntityType(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Priority is the normalized urgency of an entity.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority normalizes a priority string. Unrecognized values coerce
// to PriorityMedium: priority is advisory, not load-bearing, so a sloppy
// generator should not fail the whole entity.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// ImpactCritical is the impact value that forces human review.
const ImpactCritical = "critical"

// Field length ceilings applied during sanitization.
const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)

// CandidateEntity is generator output before validation. Every field is
// untrusted; it must pass through ValidateEntity before use.
type CandidateEntity struct {
	EntityType       string   `json:"entity_type"`
	Confidence       float64  `json:"confidence"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority"`
	Impact           string   `json:"impact,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	MentionedUsers   []string `json:"mentioned_users,omitempty"`
	RelatedEntityIDs []string `json:"related_entity_ids,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
	Citations        []string `json:"citations,omitempty"`
	Deadline         string   `json:"deadline,omitempty"`
	Owner            string   `json:"owner,omitempty"`
}

// ValidatedEntity is a CandidateEntity that passed validation. Type and
// confidence are trusted; title and description are length-bounded.
type ValidatedEntity struct {
	EntityType       EntityType `json:"entity_type"`
	Confidence       float64    `json:"confidence"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         Priority   `json:"priority"`
	Impact           string     `json:"impact,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	MentionedUsers   []string   `json:"mentioned_users,omitempty"`
	RelatedEntityIDs []string   `json:"related_entity_ids,omitempty"`
	Reasoning        string     `json:"reasoning,omitempty"`
	Citations        []string   `json:"citations,omitempty"`
	Deadline         string     `json:"deadline,omitempty"`
	Owner            string     `json:"owner,omitempty"`
}

// CriticalImpact reports whether this entity carries critical impact.
// For Risk entities a critical priority stands in when impact is absent.
func (e *ValidatedEntity) CriticalImpact() bool {
	if strings.EqualFold(strings.TrimSpace(e.Impact), ImpactCritical) {
		return true
	}
	return e.EntityType == EntityTypeRisk && e.Impact == "" && e.Priority == PriorityCritical
}

// Source identifies the external message an extraction originated from.
type Source struct {
	// Type is the channel kind: chat, email, commit, transcript.
	Type string `json:"type"`
	// Platform is the originating system (slack, github, gmail, ...).
	Platform string `json:"platform,omitempty"`
	// ExternalID is the message identifier within the platform.
	ExternalID string `json:"external_id,omitempty"`
	// Metadata carries platform-specific details for provenance.
	Metadata map[string]string `json:"metadata,omitempty"`
}
