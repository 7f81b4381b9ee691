package extraction

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teamscribe/scribe/llm"
)

// Validator errors. ErrMissingEntitiesField is a more specific variant of
// ErrMalformedResponse and matches it under errors.Is.
var (
	ErrMalformedResponse    = errors.New("malformed generator response")
	ErrMissingEntitiesField = fmt.Errorf("%w: no entities field", ErrMalformedResponse)
)

// ParseResponse locates and decodes the generator's JSON output into
// candidate entities. It tolerates fenced code blocks and surrounding
// prose as long as a JSON object can still be found.
func ParseResponse(rawText, provider string) ([]CandidateEntity, error) {
	jsonStr := llm.ExtractJSON(rawText)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object found in %s output", ErrMalformedResponse, provider)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw, ok := envelope["entities"]
	if !ok {
		return nil, ErrMissingEntitiesField
	}

	var entities []CandidateEntity
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("%w: entities is not a sequence: %v", ErrMissingEntitiesField, err)
	}

	return entities, nil
}
