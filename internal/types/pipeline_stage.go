package types

// StageName identifies one of the fixed pipeline stages. Order is
// significant and fixed: PipelineResolution, QueryEnhancement, Retrieval,
// Reranking, Reasoning, Generation.
type StageName string

const (
	StagePipelineResolution StageName = "pipeline_resolution"
	StageQueryEnhancement   StageName = "query_enhancement"
	StageRetrieval          StageName = "retrieval"
	StageReranking          StageName = "reranking"
	StageReasoning          StageName = "reasoning"
	StageGeneration         StageName = "generation"
)

// DefaultStageOrder is the fixed execution order of the search pipeline.
var DefaultStageOrder = []StageName{
	StagePipelineResolution,
	StageQueryEnhancement,
	StageRetrieval,
	StageReranking,
	StageReasoning,
	StageGeneration,
}

// StageOutcome classifies how a stage finished, replacing exception-as-
// control-flow with an explicit result the executor inspects.
type StageOutcome int

const (
	// StageOK means the stage completed normally.
	StageOK StageOutcome = iota
	// StageRecoverable means the stage hit an error it already compensated
	// for (e.g. reranker batch fallback); execution continues.
	StageRecoverable
	// StageFatal means the stage hit an error the executor must stop on
	// (validation, not-found, provider unavailable, cancellation).
	StageFatal
)

// StageError carries a stage failure plus whether it is fatal.
type StageError struct {
	Stage   StageName
	Err     error
	Fatal   bool
	Message string
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Outcome reports how the executor should treat this error.
func (e *StageError) Outcome() StageOutcome {
	if e == nil {
		return StageOK
	}
	if e.Fatal {
		return StageFatal
	}
	return StageRecoverable
}

// StageMetadata is recorded per stage under SearchContext.Metadata[stage].
type StageMetadata struct {
	Stage        StageName     `json:"stage"`
	DurationMS   int64         `json:"duration_ms"`
	Outcome      string        `json:"outcome"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}
