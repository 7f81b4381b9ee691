// Package pipeline wires the extraction stages end to end: context
// assembly, prompt construction, provider invocation, response
// validation, and the governance decision for every extracted entity.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/teamscribe/scribe/config"
	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/governance"
	"github.com/teamscribe/scribe/llm"
	"github.com/teamscribe/scribe/metrics"
)

// Pipeline errors.
var (
	// ErrMalformedMessage is returned for non-text input.
	ErrMalformedMessage = errors.New("malformed message: not valid text")
	// ErrPromptTooLarge is returned when the rendered prompt exceeds the
	// provider's static request ceiling.
	ErrPromptTooLarge = errors.New("prompt exceeds provider token ceiling")
	// ErrExtractionFailed is returned after transient provider errors
	// exhausted the retry budget.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Message is one inbound unit of work.
type Message struct {
	Text      string
	Source    extraction.Source
	UserID    string
	ProjectID string

	// Optional context material. Missing parts lower the context quality
	// score; they never fail the run.
	Project      *extraction.ProjectMeta
	Entities     []extraction.RelatedEntity
	Documents    []extraction.ReferenceDocument
	Conversation []extraction.ConversationTurn
	UserContext  string
}

// Result is the outcome of one pipeline run.
type Result struct {
	Context    extraction.Summary        `json:"context"`
	Provider   string                    `json:"provider"`
	Tokens     int                       `json:"estimated_tokens"`
	Cost       extraction.CostEstimate   `json:"estimated_cost"`
	Candidates int                       `json:"candidates"`
	Dropped    int                       `json:"dropped"`
	Decisions  *governance.ProcessResult `json:"decisions"`
}

// Pipeline processes messages. Each run is strictly sequential; separate
// runs share no mutable state beyond the external store.
type Pipeline struct {
	mu     sync.RWMutex
	cfg    *config.Config
	client *llm.Client
	engine *governance.Engine
	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg *config.Config, client *llm.Client, engine *governance.Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		client: client,
		engine: engine,
		logger: logger,
	}
}

// SetConfig swaps the active configuration. Called by the config watcher
// on hot reload; in-flight runs keep the config they started with.
func (p *Pipeline) SetConfig(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

func (p *Pipeline) config() *config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Run processes one message through every stage. No writes occur before
// the decision stage, so a caller may abandon a run at any earlier point
// without side effects.
func (p *Pipeline) Run(ctx context.Context, msg Message) (*Result, error) {
	if !utf8.ValidString(msg.Text) {
		return nil, ErrMalformedMessage
	}

	cfg := p.config()
	provider := cfg.Extraction.Provider

	if err := extraction.ValidateProvider(provider, cfg); err != nil {
		return nil, err
	}

	// Stage 1: context assembly. Never fails on missing sub-parts; entity
	// and document lists are capped to the configured context limits.
	ec := extraction.Assemble(msg.Text, msg.Project, msg.Entities, msg.Documents, msg.Conversation, msg.UserContext,
		extraction.Limits{
			MaxEntities:  cfg.Extraction.MaxContextEntities,
			MaxDocuments: cfg.Extraction.MaxContextDocuments,
		})

	// Stage 2: prompt construction.
	prompt, err := extraction.BuildExtractionPrompt(extraction.PromptRequest{
		Message:        msg.Text,
		Context:        ec,
		Source:         msg.Source,
		Provider:       provider,
		DetectionTypes: cfg.Governance.DetectionTypes,
	})
	if err != nil {
		return nil, err
	}

	if prompt.EstimatedTokens > extraction.MaxTokens(provider) {
		return nil, fmt.Errorf("%w: %d tokens against a ceiling of %d",
			ErrPromptTooLarge, prompt.EstimatedTokens, extraction.MaxTokens(provider))
	}

	result := &Result{
		Context:  ec.Summarize(),
		Provider: provider,
		Tokens:   prompt.EstimatedTokens,
	}

	// Stage 3: provider invocation with retry.
	pc := cfg.Providers[provider]
	invokeCtx, cancel := context.WithTimeout(ctx, cfg.Extraction.Timeout)
	defer cancel()

	resp, err := p.client.Invoke(invokeCtx, llm.Endpoint{
		Provider: provider,
		Model:    pc.Model,
		BaseURL:  pc.BaseURL,
		APIKey:   pc.APIKey,
	}, llm.Request{
		Prompt:       prompt.Prompt,
		SystemPrompt: prompt.SystemPrompt,
	})
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(provider, "provider_error").Inc()
		metrics.ProviderErrors.WithLabelValues(provider, string(llm.KindOf(err))).Inc()
		if llm.IsTransient(err) {
			return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		return nil, err
	}
	metrics.InvokeDuration.WithLabelValues(provider).Observe(resp.Duration.Seconds())
	result.Cost = extraction.EstimateCost(resp.PromptTokens, resp.CompletionTokens, provider)

	// Stage 4: parse and validate. A single bad candidate is dropped and
	// logged; it does not abort its siblings.
	candidates, err := extraction.ParseResponse(resp.Content, provider)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(provider, "malformed").Inc()
		return nil, err
	}
	result.Candidates = len(candidates)

	validated := make([]extraction.ValidatedEntity, 0, len(candidates))
	for _, candidate := range candidates {
		entity, err := extraction.ValidateEntity(candidate)
		if err != nil {
			result.Dropped++
			metrics.EntitiesDropped.WithLabelValues(dropCause(err)).Inc()
			p.logger.Warn("candidate entity dropped",
				"title", candidate.Title,
				"entity_type", candidate.EntityType,
				"error", err)
			continue
		}
		validated = append(validated, *entity)
	}

	// Stage 5: one governance decision per entity.
	decisions, err := p.engine.ProcessExtractedEntities(ctx, governance.ProcessRequest{
		Entities:  validated,
		UserID:    msg.UserID,
		ProjectID: msg.ProjectID,
		Source:    msg.Source,
	})
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(provider, "store_error").Inc()
		result.Decisions = decisions
		return result, err
	}

	result.Decisions = decisions
	metrics.ExtractionsTotal.WithLabelValues(provider, "ok").Inc()
	return result, nil
}

func dropCause(err error) string {
	switch {
	case errors.Is(err, extraction.ErrInvalidEntityType):
		return "invalid_entity_type"
	case errors.Is(err, extraction.ErrInvalidConfidence):
		return "invalid_confidence"
	default:
		return "other"
	}
}
