package types

import "time"

// RequestMetadata is the tagged-variant replacement for a free-form
// config_metadata map: named fields for every well-known
// key the pipeline reads, with Extra as the overflow for genuinely free-form
// extensions.
type RequestMetadata struct {
	ConversationAware   bool     `json:"conversation_aware,omitempty"`
	ConversationContext string   `json:"conversation_context,omitempty"`
	Entities            []string `json:"entities,omitempty"`
	TopKOverride        int      `json:"top_k_override,omitempty"`
	CoTEnabled          bool     `json:"cot_enabled,omitempty"`
	ScoreScale          float64  `json:"score_scale,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// SearchInput is the public search request.
type SearchInput struct {
	Question     string           `json:"question"`
	CollectionID string           `json:"collection_id"`
	PipelineID   string           `json:"pipeline_id,omitempty"`
	UserID       string           `json:"user_id"`
	Metadata     *RequestMetadata `json:"config_metadata,omitempty"`
}

// CoTStep is one step of a chain-of-thought trace.
type CoTStep struct {
	Step             int     `json:"step"`
	Description      string  `json:"description"`
	IntermediateText string  `json:"intermediate_answer"`
	Confidence       float64 `json:"confidence"`
	TokensUsed       int     `json:"tokens_used"`
}

// CoTOutput is the aggregated chain-of-reasoning result of the optional
// reasoning stage.
type CoTOutput struct {
	Steps              []CoTStep `json:"steps"`
	AggregatedConfidence float64  `json:"aggregated_confidence"`
	ExecutionTimeMS    int64     `json:"execution_time_ms"`
}

// TokenAnalysis is the per-turn token accounting record.
type TokenAnalysis struct {
	QueryTokens       int `json:"query_tokens"`
	ResponseTokens    int `json:"response_tokens"`
	SystemTokens      int `json:"system_tokens"`
	TotalThisTurn     int `json:"total_this_turn"`
	ConversationTotal int `json:"conversation_total"`
}

// TokenWarningType enumerates the three token-pressure severities.
type TokenWarningType string

const (
	TokenWarningApproachingLimit TokenWarningType = "approaching_limit"
	TokenWarningAtLimit          TokenWarningType = "at_limit"
	TokenWarningOverLimit        TokenWarningType = "over_limit"
)

// TokenWarning is produced by TokenTrackingService.CheckUsageWarning.
type TokenWarning struct {
	Type             TokenWarningType `json:"type"`
	Severity         string           `json:"severity"`
	Percentage       float64          `json:"percentage"`
	CurrentTokens    int              `json:"current_tokens"`
	LimitTokens      int              `json:"limit_tokens"`
	Message          string           `json:"message"`
	SuggestedAction  string           `json:"suggested_action"`
}

// DocumentMetadata is per-document display data assembled by the search
// service when building a SearchOutput.
type DocumentMetadata struct {
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name"`
	BestScore     float64 `json:"best_score"`
	PageNumbers   []int  `json:"page_numbers"`
}

// EvaluationReport is the optional quality report attached to a SearchOutput
// Exactly one of the cosine fields or the judge fields is populated
// depending on which evaluator mode ran; Error is set instead of scores when
// evaluation could not run (e.g. "No documents found").
type EvaluationReport struct {
	Mode          string  `json:"mode"` // "cosine" | "llm_judge"
	Relevance     float64 `json:"relevance,omitempty"`
	Coherence     float64 `json:"coherence,omitempty"`
	Faithfulness  float64 `json:"faithfulness,omitempty"`
	Overall       float64 `json:"overall,omitempty"`

	JudgeFaithfulness     float64 `json:"judge_faithfulness,omitempty"`
	JudgeAnswerRelevance  float64 `json:"judge_answer_relevance,omitempty"`
	JudgeContextRelevance float64 `json:"judge_context_relevance,omitempty"`
	JudgeErrors           map[string]string `json:"judge_errors,omitempty"`

	Error string `json:"error,omitempty"`
}

// SearchContext is the mutable, per-request object threaded through
// pipeline stages. It is exclusively owned by the currently executing
// pipeline; stages are non-owning borrowers during their invocation.
type SearchContext struct {
	Input SearchInput

	// Resolved identities, written by PipelineResolution.
	ResolvedUserID       string
	ResolvedCollectionID string
	ResolvedPipelineID   string
	VectorCollectionName string
	PipelineConfig       *PipelineConfig
	RAGTemplate          *PromptTemplate
	EvaluationTemplate   *PromptTemplate

	RewrittenQuery string
	QueryResults   []ScoredChunk

	GeneratedAnswer string
	Evaluation      *EvaluationReport
	CoT             *CoTOutput
	TokenWarning    *TokenWarning

	ExecutionTimeMS int64
	StageMetadata   map[StageName]StageMetadata
	Errors          []*StageError

	// Metadata is the free-form output sub-tree (enrichment results, token
	// analysis, etc.) assembled by stages that run after generation.
	Metadata map[string]any

	Deadline time.Time
}

// NewSearchContext creates a SearchContext ready for the executor.
func NewSearchContext(input SearchInput) *SearchContext {
	return &SearchContext{
		Input:         input,
		StageMetadata: make(map[StageName]StageMetadata),
		Metadata:      make(map[string]any),
	}
}

// AddStageMetadata records the outcome of one stage.
func (c *SearchContext) AddStageMetadata(m StageMetadata) {
	if c.StageMetadata == nil {
		c.StageMetadata = make(map[StageName]StageMetadata)
	}
	c.StageMetadata[m.Stage] = m
}

// AppendError records a non-fatal stage error and continues.
func (c *SearchContext) AppendError(err *StageError) {
	c.Errors = append(c.Errors, err)
}

// SearchOutput is the public search response.
type SearchOutput struct {
	Answer          string             `json:"answer"`
	Documents       []DocumentMetadata `json:"documents"`
	QueryResults    []ScoredChunk      `json:"query_results"`
	RewrittenQuery  string             `json:"rewritten_query"`
	Evaluation      *EvaluationReport  `json:"evaluation,omitempty"`
	ExecutionTimeMS int64              `json:"execution_time_ms"`
	CoT             *CoTOutput         `json:"cot_output,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	TokenWarning    *TokenWarning      `json:"token_warning,omitempty"`
}

// Pagination represents the pagination parameters
type Pagination struct {
	// Page
	Page int `form:"page" json:"page" binding:"omitempty,min=1"`
	// Page size
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage gets the page number, default is 1
func (p *Pagination) GetPage() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// GetPageSize gets the page size, default is 20
func (p *Pagination) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset gets the offset for database query
func (p *Pagination) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// Limit gets the limit for database query
func (p *Pagination) Limit() int {
	return p.GetPageSize()
}

// PageResult represents the pagination query result
type PageResult struct {
	Total    int64       `json:"total"`     // Total number of records
	Page     int         `json:"page"`      // Current page number
	PageSize int         `json:"page_size"` // Page size
	Data     interface{} `json:"data"`      // Data
}

// NewPageResult creates a new pagination result
func NewPageResult(total int64, page *Pagination, data interface{}) *PageResult {
	return &PageResult{
		Total:    total,
		Page:     page.GetPage(),
		PageSize: page.GetPageSize(),
		Data:     data,
	}
}
