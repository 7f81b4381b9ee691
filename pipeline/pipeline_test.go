package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamscribe/scribe/config"
	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/governance"
	"github.com/teamscribe/scribe/llm"
	_ "github.com/teamscribe/scribe/llm/providers"
	"github.com/teamscribe/scribe/pipeline"
)

// memStore is an in-memory governance.Store for pipeline tests.
type memStore struct {
	assignments map[string]*governance.RoleAssignment
	nodes       []*governance.Node
	proposals   []*governance.Proposal
}

func newMemStore() *memStore {
	return &memStore{assignments: make(map[string]*governance.RoleAssignment)}
}

func (s *memStore) CreateEntityWithEvidence(_ context.Context, node *governance.Node, evidence *governance.Evidence) (string, string, error) {
	s.nodes = append(s.nodes, node)
	return node.ID, evidence.ID, nil
}

func (s *memStore) InsertProposal(_ context.Context, p *governance.Proposal) (string, error) {
	s.proposals = append(s.proposals, p)
	return p.ID, nil
}

func (s *memStore) GetProposal(_ context.Context, id string) (*governance.Proposal, error) {
	for _, p := range s.proposals {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, governance.ErrNotFound
}

func (s *memStore) UpdateProposalStatus(_ context.Context, _ string, _ governance.ProposalStatus, _, _ string) error {
	return nil
}

func (s *memStore) GetRolePermission(_ context.Context, _ string, _ extraction.EntityType) (*governance.RolePermission, error) {
	return nil, nil
}

func (s *memStore) GetUserAuthority(_ context.Context, userID, projectID string) (*governance.RoleAssignment, error) {
	return s.assignments[projectID+"."+userID], nil
}

func (s *memStore) GetSidecarConfig(_ context.Context, _ string) (governance.SidecarConfig, error) {
	return governance.DefaultSidecarConfig(), nil
}

// modelServer fakes an OpenAI-compatible endpoint that always answers with
// the given assistant content.
func modelServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{
			"model": "llama3.1",
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 200, "completion_tokens": 50},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Extraction.Provider = "ollama"
	cfg.Extraction.Timeout = 10 * time.Second
	cfg.Providers["ollama"] = config.ProviderConfig{BaseURL: baseURL}
	return cfg
}

func testMessage() pipeline.Message {
	return pipeline.Message{
		Text:      "We decided to ship the migration behind a feature flag next sprint.",
		Source:    extraction.Source{Type: "chat", Platform: "slack", ExternalID: "C1.42"},
		UserID:    "user-1",
		ProjectID: "proj-1",
		Project:   &extraction.ProjectMeta{Name: "Atlas", Description: "Data platform"},
	}
}

func TestRun(t *testing.T) {
	srv := modelServer(t, `{"entities": [
		{"entity_type": "decision", "confidence": 0.92, "title": "Ship migration behind a flag", "description": "Agreed in standup", "priority": "high"},
		{"entity_type": "risk", "confidence": 0.55, "title": "Flag cleanup debt", "description": "", "priority": "low"}
	]}`)

	store := newMemStore()
	store.assignments["proj-1.user-1"] = &governance.RoleAssignment{RoleID: "lead", Authority: 4}

	p := pipeline.New(testConfig(srv.URL), llm.NewClient(), governance.NewEngine(store), nil)

	result, err := p.Run(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, "ollama", result.Provider)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 0, result.Dropped)
	require.NotNil(t, result.Decisions)
	assert.Equal(t, 1, result.Decisions.Summary.AutoCreated)
	assert.Equal(t, 1, result.Decisions.Summary.Proposals)
	assert.Len(t, store.nodes, 1)
	assert.Len(t, store.proposals, 1)
	assert.Zero(t, result.Cost.TotalCost, "ollama runs are free")
}

func TestRun_ContextListsFollowConfiguredLimits(t *testing.T) {
	srv := modelServer(t, `{"entities": []}`)

	p := pipeline.New(testConfig(srv.URL), llm.NewClient(), governance.NewEngine(newMemStore()), nil)

	msg := testMessage()
	for i := 0; i < 20; i++ {
		msg.Entities = append(msg.Entities, extraction.RelatedEntity{ID: "e", EntityType: "task", Title: "t"})
		msg.Documents = append(msg.Documents, extraction.ReferenceDocument{Title: "d", Excerpt: "x"})
	}

	result, err := p.Run(context.Background(), msg)
	require.NoError(t, err)

	// DefaultConfig caps context at 5 entities and 3 documents.
	assert.Equal(t, 5, result.Context.EntityCount)
	assert.Equal(t, 3, result.Context.DocumentCount)
}

func TestRun_DropsInvalidCandidates(t *testing.T) {
	srv := modelServer(t, `{"entities": [
		{"entity_type": "meeting", "confidence": 0.9, "title": "Unknown type", "description": "", "priority": "low"},
		{"entity_type": "task", "confidence": 1.4, "title": "Bad confidence", "description": "", "priority": "low"},
		{"entity_type": "task", "confidence": 0.9, "title": "Valid", "description": "", "priority": "low"}
	]}`)

	store := newMemStore()
	store.assignments["proj-1.user-1"] = &governance.RoleAssignment{RoleID: "lead", Authority: 4}

	p := pipeline.New(testConfig(srv.URL), llm.NewClient(), governance.NewEngine(store), nil)

	result, err := p.Run(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Dropped)
	assert.Equal(t, 1, result.Decisions.Processed)
}

func TestRun_MalformedMessage(t *testing.T) {
	p := pipeline.New(testConfig("http://unused"), llm.NewClient(), governance.NewEngine(newMemStore()), nil)

	msg := testMessage()
	msg.Text = string([]byte{0xff, 0xfe, 0xfd})

	_, err := p.Run(context.Background(), msg)
	require.ErrorIs(t, err, pipeline.ErrMalformedMessage)
}

func TestRun_MalformedResponse(t *testing.T) {
	srv := modelServer(t, "I could not find any structured data in that message.")

	store := newMemStore()
	p := pipeline.New(testConfig(srv.URL), llm.NewClient(), governance.NewEngine(store), nil)

	_, err := p.Run(context.Background(), testMessage())
	require.ErrorIs(t, err, extraction.ErrMalformedResponse)
	assert.Empty(t, store.nodes)
	assert.Empty(t, store.proposals)
}

func TestRun_MissingCredentials(t *testing.T) {
	cfg := testConfig("http://unused")
	// The default anthropic row names a credential env var; the loader never
	// ran here, so no key was resolved.
	cfg.Extraction.Provider = "anthropic"

	p := pipeline.New(cfg, llm.NewClient(), governance.NewEngine(newMemStore()), nil)

	_, err := p.Run(context.Background(), testMessage())
	require.ErrorIs(t, err, extraction.ErrMissingCredentials)
}

func TestRun_ProviderFailureIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	store := newMemStore()
	p := pipeline.New(testConfig(srv.URL), llm.NewClient(), governance.NewEngine(store), nil)

	_, err := p.Run(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, llm.KindClientError, llm.KindOf(err))
	assert.Empty(t, store.nodes)
}

func TestRun_PromptTooLarge(t *testing.T) {
	cfg := testConfig("http://unused")

	p := pipeline.New(cfg, llm.NewClient(), governance.NewEngine(newMemStore()), nil)

	msg := testMessage()
	for len(msg.Text) < 5*32000 {
		msg.Text += " the discussion continued at considerable length without resolution"
	}

	_, err := p.Run(context.Background(), msg)
	require.ErrorIs(t, err, pipeline.ErrPromptTooLarge)
}

func TestSetConfig(t *testing.T) {
	srv := modelServer(t, `{"entities": []}`)

	p := pipeline.New(testConfig("http://stale"), llm.NewClient(), governance.NewEngine(newMemStore()), nil)
	p.SetConfig(testConfig(srv.URL))

	result, err := p.Run(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Candidates)
}
