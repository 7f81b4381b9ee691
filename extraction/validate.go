package extraction

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Hard validation errors. These drop the candidate entirely: entity type
// and confidence drive permission lookups and decision rules downstream,
// so a bad value cannot be papered over.
var (
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidConfidence = errors.New("confidence out of range")
)

// ValidateEntity converts an untrusted candidate into a ValidatedEntity.
//
// The two phases are deliberately separate code paths: sanitize coerces
// soft fields (length truncation, priority fallback) and always succeeds;
// validate checks load-bearing fields (type, confidence) and can fail.
func ValidateEntity(candidate CandidateEntity) (*ValidatedEntity, error) {
	entityType, ok := ParseEntityType(candidate.EntityType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, candidate.EntityType)
	}

	if candidate.Confidence < 0 || candidate.Confidence > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfidence, candidate.Confidence)
	}

	sanitized := sanitize(candidate)

	return &ValidatedEntity{
		EntityType:       entityType,
		Confidence:       candidate.Confidence,
		Title:            sanitized.Title,
		Description:      sanitized.Description,
		Priority:         ParsePriority(sanitized.Priority),
		Impact:           sanitized.Impact,
		Tags:             sanitized.Tags,
		MentionedUsers:   sanitized.MentionedUsers,
		RelatedEntityIDs: sanitized.RelatedEntityIDs,
		Reasoning:        sanitized.Reasoning,
		Citations:        sanitized.Citations,
		Deadline:         sanitized.Deadline,
		Owner:            sanitized.Owner,
	}, nil
}

// sanitize applies silent corrections that never fail: field truncation
// to fixed ceilings. Priority coercion happens via ParsePriority above.
func sanitize(c CandidateEntity) CandidateEntity {
	c.Title = truncate(c.Title, MaxTitleLen)
	c.Description = truncate(c.Description, MaxDescriptionLen)
	return c
}

// truncate cuts s to at most limit bytes without splitting a rune, so a
// multibyte character straddling the limit never leaves invalid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
