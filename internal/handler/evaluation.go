package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/evaluate"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// EvaluationHandler queues background evaluation runs and serves their
// results: the judge LLM round-trip never blocks an HTTP request.
type EvaluationHandler struct {
	queue     *evaluate.JobQueue
	evaluator interfaces.Evaluator
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(queue *evaluate.JobQueue, evaluator interfaces.Evaluator) *EvaluationHandler {
	return &EvaluationHandler{queue: queue, evaluator: evaluator}
}

// EvaluationRequest is the POST /evaluation body: a frozen (question,
// answer, evidence) triple to score.
type EvaluationRequest struct {
	Question     string              `json:"question" binding:"required"`
	Answer       string              `json:"answer" binding:"required"`
	QueryResults []types.ScoredChunk `json:"query_results"`
}

// Evaluation handles POST /evaluation: enqueue a run and return its job id.
func (h *EvaluationHandler) Evaluation(c *gin.Context) {
	ctx := c.Request.Context()

	var req EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error(ctx, "Failed to parse evaluation request", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	sctx := types.NewSearchContext(types.SearchInput{Question: req.Question, UserID: userID})
	sctx.RewrittenQuery = req.Question
	sctx.GeneratedAnswer = req.Answer
	sctx.QueryResults = req.QueryResults

	job := &types.EvaluationJob{
		ID:     uuid.New().String(),
		UserID: userID,
		Mode:   h.evaluator.Mode(),
	}
	if err := h.queue.EnqueueRun(ctx, job, sctx); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	logger.Infof(ctx, "Evaluation job queued, ID: %s, mode: %s", job.ID, job.Mode)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    job,
	})
}

// GetEvaluationResult handles GET /evaluation/:id
func (h *EvaluationHandler) GetEvaluationResult(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	job, err := h.queue.Get(ctx, id)
	if err != nil {
		c.Error(errors.NewNotFoundError("Evaluation job not found"))
		return
	}
	if job.UserID != c.GetString(types.UserIDContextKey.String()) {
		c.Error(errors.NewNotFoundError("Evaluation job not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// ExportRequest is the POST /evaluation/export body.
type ExportRequest struct {
	JobIDs []string `json:"job_ids" binding:"required"`
}

// Export handles POST /evaluation/export: streams the named finished jobs
// as a parquet table.
func (h *EvaluationHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	jobs := make([]*types.EvaluationJob, 0, len(req.JobIDs))
	for _, id := range req.JobIDs {
		job, err := h.queue.Get(ctx, id)
		if err != nil || job.UserID != userID {
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		c.Error(errors.NewNotFoundError("No evaluation jobs found"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=evaluation_reports.parquet")
	c.Header("Content-Type", "application/octet-stream")
	if err := evaluate.ExportReports(c.Writer, jobs); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}
}
