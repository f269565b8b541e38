package types

import (
	"encoding/json"
	"time"
)

// EvaluationMode selects the evaluator's scoring strategy.
type EvaluationMode string

const (
	EvaluationModeCosine   EvaluationMode = "cosine"
	EvaluationModeLLMJudge EvaluationMode = "llm_judge"
)

// EvaluationJobStatus is the lifecycle state of an asynchronously queued
// evaluation run (internal/evaluate async mode, backed by asynq).
type EvaluationJobStatus int

const (
	EvaluationJobPending EvaluationJobStatus = iota
	EvaluationJobRunning
	EvaluationJobSuccess
	EvaluationJobFailed
)

// EvaluationJob tracks one background evaluation request queued through
// asynq; the handler polls this record rather than blocking the search
// request on the judge LLM round-trip.
type EvaluationJob struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Mode      EvaluationMode      `json:"mode"`
	StartTime time.Time           `json:"start_time"`
	Status    EvaluationJobStatus `json:"status"`
	ErrMsg    string              `json:"err_msg,omitempty"`
	Report    *EvaluationReport   `json:"report,omitempty"`
}

// String returns the JSON representation of the job, used in log fields.
func (e *EvaluationJob) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}
