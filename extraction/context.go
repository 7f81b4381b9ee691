package extraction

// ProjectMeta is the project metadata available to the prompt.
type ProjectMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RelatedEntity is an existing knowledge-graph entity relevant to the message.
type RelatedEntity struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	Title      string `json:"title"`
}

// ReferenceDocument is a retrieved document excerpt supplied for context.
type ReferenceDocument struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// ConversationTurn is a single recent message from the same channel.
type ConversationTurn struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Context is the ephemeral material assembled for one extraction request.
// It is owned by the calling request and never persisted.
type Context struct {
	Project      *ProjectMeta
	Entities     []RelatedEntity
	Documents    []ReferenceDocument
	Conversation []ConversationTurn
	UserContext  string
	Keywords     []string
}

// Per-field weights for context quality. Five sub-parts, each worth 0.2,
// so a fully populated context scores exactly 1.0.
const qualityWeight = 0.2

// Quality scores how much useful material the context carries, in [0,1].
// Each non-empty sub-part contributes a fixed weight; an all-empty context
// scores exactly 0.
func (c *Context) Quality() float64 {
	score := 0.0
	if c.Project != nil && (c.Project.Name != "" || c.Project.Description != "") {
		score += qualityWeight
	}
	if len(c.Entities) > 0 {
		score += qualityWeight
	}
	if len(c.Documents) > 0 {
		score += qualityWeight
	}
	if len(c.Conversation) > 0 {
		score += qualityWeight
	}
	if c.UserContext != "" {
		score += qualityWeight
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Summary is a read-only projection of a Context for observability.
type Summary struct {
	HasProject        int     `json:"has_project"`
	EntityCount       int     `json:"entity_count"`
	DocumentCount     int     `json:"document_count"`
	ConversationTurns int     `json:"conversation_turns"`
	KeywordCount      int     `json:"keyword_count"`
	Quality           float64 `json:"quality"`
}

// Summarize returns counts and the quality score without mutating c.
func (c *Context) Summarize() Summary {
	s := Summary{
		EntityCount:       len(c.Entities),
		DocumentCount:     len(c.Documents),
		ConversationTurns: len(c.Conversation),
		KeywordCount:      len(c.Keywords),
		Quality:           c.Quality(),
	}
	if c.Project != nil {
		s.HasProject = 1
	}
	return s
}

// Limits bounds the context material carried into a prompt. A value of
// zero or less leaves that list unbounded.
type Limits struct {
	// MaxEntities caps the related entities included.
	MaxEntities int
	// MaxDocuments caps the reference documents included.
	MaxDocuments int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{MaxEntities: 5, MaxDocuments: 3}
}

func bound[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Assemble builds a Context for a message, keeping at most the limited
// number of related entities and reference documents. Missing sub-parts
// degrade the quality score; they never fail assembly.
func Assemble(message string, project *ProjectMeta, entities []RelatedEntity, documents []ReferenceDocument, conversation []ConversationTurn, userContext string, limits Limits) *Context {
	return &Context{
		Project:      project,
		Entities:     bound(entities, limits.MaxEntities),
		Documents:    bound(documents, limits.MaxDocuments),
		Conversation: conversation,
		UserContext:  userContext,
		Keywords:     ExtractKeywords(message),
	}
}
