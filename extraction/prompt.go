package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teamscribe/scribe/config"
)

// Prompt-builder errors.
var (
	// ErrInvalidProvider is returned for unrecognized provider names.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrMissingCredentials is returned when a recognized provider has no
	// credential in the process configuration.
	ErrMissingCredentials = errors.New("missing provider credentials")
)

// supportedProviders is the set of providers the prompt builder can
// render a dialect for.
var supportedProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"ollama":    true,
}

// maxTokensByProvider is the static per-provider request ceiling used to
// reject oversized requests before invocation.
var maxTokensByProvider = map[string]int{
	"anthropic": 200000,
	"openai":    128000,
	"ollama":    32000,
}

// defaultMaxTokens applies to providers missing from the table.
const defaultMaxTokens = 32000

// tokenDivisors approximate tokens as characters / divisor, per provider.
// Pre-flight sizing only, not billing-accurate.
var tokenDivisors = map[string]float64{
	"anthropic": 3.5,
	"openai":    4.0,
	"ollama":    4.0,
}

// noContextSentinel is rendered when the context has no material at all.
const noContextSentinel = "No project context available."

// PromptRequest carries everything needed to build one extraction prompt.
type PromptRequest struct {
	Message  string
	Context  *Context
	Source   Source
	Provider string
	// DetectionTypes lists the entity types the prompt asks for.
	DetectionTypes []string
}

// Prompt is a rendered, provider-specific extraction prompt.
type Prompt struct {
	Prompt          string
	SystemPrompt    string
	Provider        string
	EstimatedTokens int
}

// ValidateProvider checks that a provider name is recognized and that its
// credential is present in cfg. This is the one place the prompt builder
// touches configuration; it never touches the network.
func ValidateProvider(name string, cfg *config.Config) error {
	if !supportedProviders[name] {
		return fmt.Errorf("%w: %s", ErrInvalidProvider, name)
	}

	pc, ok := cfg.Providers[name]
	if !ok {
		if name == "ollama" {
			return nil // local provider needs no credential
		}
		return fmt.Errorf("%w: provider %s not configured", ErrMissingCredentials, name)
	}
	if pc.APIKeyEnv != "" && pc.APIKey == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingCredentials, pc.APIKeyEnv)
	}
	return nil
}

// MaxTokens returns the static per-provider request ceiling.
func MaxTokens(provider string) int {
	if ceiling, ok := maxTokensByProvider[provider]; ok {
		return ceiling
	}
	return defaultMaxTokens
}

// EstimateTokens approximates the token count of text for a provider.
func EstimateTokens(text, provider string) int {
	divisor, ok := tokenDivisors[provider]
	if !ok {
		divisor = 4.0
	}
	return int(float64(len(text)) / divisor)
}

// BuildExtractionPrompt renders a provider-specific extraction prompt.
// Every dialect embeds the project context block, the source metadata,
// and the message to analyze, in that order.
func BuildExtractionPrompt(req PromptRequest) (*Prompt, error) {
	if !supportedProviders[req.Provider] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, req.Provider)
	}

	types := req.DetectionTypes
	if len(types) == 0 {
		types = []string{"decision", "risk", "task", "action_item"}
	}

	contextBlock := BuildProjectContext(req.Context)
	sourceBlock := buildSourceBlock(req.Source)
	instructions := buildInstructions(types)

	var prompt string
	switch req.Provider {
	case "anthropic":
		prompt = renderTagged(instructions, contextBlock, sourceBlock, req.Message)
	case "openai":
		prompt = renderLabeled(instructions, contextBlock, sourceBlock, req.Message)
	case "ollama":
		prompt = renderMarkdown(instructions, contextBlock, sourceBlock, req.Message)
	}

	return &Prompt{
		Prompt:          prompt,
		SystemPrompt:    systemPromptFor(req.Provider),
		Provider:        req.Provider,
		EstimatedTokens: EstimateTokens(prompt, req.Provider),
	}, nil
}

// BuildProjectContext renders the context into prose: project metadata,
// related entities, then reference documents. An empty context yields a
// fixed sentinel string, never "" and never an error.
func BuildProjectContext(c *Context) string {
	if c == nil {
		return noContextSentinel
	}

	var b strings.Builder

	if c.Project != nil && c.Project.Name != "" {
		fmt.Fprintf(&b, "Project: %s", c.Project.Name)
		if c.Project.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Project.Description)
		}
		b.WriteString("\n")
	}

	if len(c.Entities) > 0 {
		b.WriteString("Related entities:\n")
		for _, e := range c.Entities {
			fmt.Fprintf(&b, "- [%s] %s (id: %s)\n", e.EntityType, e.Title, e.ID)
		}
	}

	if len(c.Documents) > 0 {
		b.WriteString("Reference documents:\n")
		for _, d := range c.Documents {
			fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Excerpt)
		}
	}

	if len(c.Conversation) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range c.Conversation {
			fmt.Fprintf(&b, "%s: %s\n", t.Author, t.Content)
		}
	}

	if c.UserContext != "" {
		fmt.Fprintf(&b, "Submitter context: %s\n", c.UserContext)
	}

	if b.Len() == 0 {
		return noContextSentinel
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildSourceBlock(s Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source type: %s", s.Type)
	if s.Platform != "" {
		fmt.Fprintf(&b, "\nPlatform: %s", s.Platform)
	}
	if s.ExternalID != "" {
		fmt.Fprintf(&b, "\nExternal ID: %s", s.ExternalID)
	}
	return b.String()
}

func buildInstructions(types []string) string {
	return fmt.Sprintf(`Analyze the message for project-relevant items of these types: %s.
For each item found, emit an object with fields: entity_type, confidence (0.0-1.0),
title, description, priority (low|medium|high|critical), impact, tags,
mentioned_users, related_entity_ids, reasoning, citations, deadline, owner.
Respond with a single JSON object of the form {"entities": [...]}.
If the message contains nothing project-relevant, respond with {"entities": []}.`,
		strings.Join(types, ", "))
}

// renderTagged uses XML-style tagged blocks (Anthropic's preferred dialect).
func renderTagged(instructions, contextBlock, sourceBlock, message string) string {
	return fmt.Sprintf("%s\n\n<project_context>\n%s\n</project_context>\n\n<source>\n%s\n</source>\n\n<message>\n%s\n</message>",
		instructions, contextBlock, sourceBlock, message)
}

// renderLabeled uses labeled blocks separated by rules.
func renderLabeled(instructions, contextBlock, sourceBlock, message string) string {
	return fmt.Sprintf("%s\n\nPROJECT CONTEXT:\n%s\n---\nSOURCE:\n%s\n---\nMESSAGE TO ANALYZE:\n%s",
		instructions, contextBlock, sourceBlock, message)
}

// renderMarkdown uses markdown headers, which local models follow best.
func renderMarkdown(instructions, contextBlock, sourceBlock, message string) string {
	return fmt.Sprintf("%s\n\n## Project Context\n\n%s\n\n## Source\n\n%s\n\n## Message to Analyze\n\n%s",
		instructions, contextBlock, sourceBlock, message)
}

// systemPromptFor returns provider-specific boilerplate. Providers without
// a native JSON output mode get strict JSON-only instructions here.
func systemPromptFor(provider string) string {
	switch provider {
	case "anthropic":
		return "You are an assistant that extracts project decisions, risks, tasks and action items from messages. Respond only with the requested JSON object."
	case "openai":
		return "You extract project decisions, risks, tasks and action items from messages. You always respond with a single valid JSON object and nothing else."
	default:
		return "You extract project decisions, risks, tasks and action items from messages. Respond ONLY with a single valid JSON object. No prose, no markdown fences, no explanations."
	}
}
