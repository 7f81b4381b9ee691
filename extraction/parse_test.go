package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEntities = `{"entities": [
  {"entity_type": "decision", "confidence": 0.9, "title": "Use Kafka", "description": "Adopt Kafka for events", "priority": "high"},
  {"entity_type": "risk", "confidence": 0.7, "title": "Single broker", "description": "No failover configured", "priority": "critical"}
]}`

func TestParseResponse_PlainJSON(t *testing.T) {
	entities, err := ParseResponse(sampleEntities, "openai")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Use Kafka", entities[0].Title)
	assert.Equal(t, 0.7, entities[1].Confidence)
}

func TestParseResponse_FencedEqualsUnfenced(t *testing.T) {
	fenced := "```json\n" + sampleEntities + "\n```"

	plain, err := ParseResponse(sampleEntities, "ollama")
	require.NoError(t, err)

	wrapped, err := ParseResponse(fenced, "ollama")
	require.NoError(t, err)

	assert.Equal(t, plain, wrapped)
}

func TestParseResponse_SurroundingProse(t *testing.T) {
	noisy := "Here are the extracted entities:\n\n" + sampleEntities + "\n\nLet me know if you need more."

	entities, err := ParseResponse(noisy, "anthropic")
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestParseResponse_NonJSON(t *testing.T) {
	_, err := ParseResponse("I could not find anything relevant in this message.", "ollama")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseResponse_MissingEntitiesField(t *testing.T) {
	_, err := ParseResponse(`{"items": []}`, "openai")
	assert.ErrorIs(t, err, ErrMissingEntitiesField)
	// The specific variant still matches the general malformed error.
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseResponse_EntitiesNotASequence(t *testing.T) {
	_, err := ParseResponse(`{"entities": {"title": "x"}}`, "openai")
	assert.ErrorIs(t, err, ErrMissingEntitiesField)
}

func TestParseResponse_EmptyEntities(t *testing.T) {
	entities, err := ParseResponse(`{"entities": []}`, "openai")
	require.NoError(t, err)
	assert.Empty(t, entities)
}
