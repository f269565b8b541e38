package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// TypeEvaluationRun is the asynq task type for a queued evaluation run.
const TypeEvaluationRun = "evaluation:run"

// jobTTL bounds how long a finished job record stays readable.
const jobTTL = 24 * time.Hour

// runPayload is the asynq task body: the job id plus the frozen search
// context the evaluator scores. The context is snapshotted at enqueue time
// so the worker never re-reads request-scoped state.
type runPayload struct {
	JobID   string               `json:"job_id"`
	Context *types.SearchContext `json:"context"`
}

// JobQueue persists evaluation job records in redis and dispatches runs
// through asynq, so the search request never blocks on a judge LLM
// round-trip. It implements interfaces.EvaluationJobStore.
type JobQueue struct {
	client *asynq.Client
	rdb    *redis.Client
	prefix string
}

// NewJobQueue builds the asynq/redis-backed evaluation job queue.
func NewJobQueue(client *asynq.Client, rdb *redis.Client, prefix string) *JobQueue {
	if prefix == "" {
		prefix = "evaluation:job:"
	}
	return &JobQueue{client: client, rdb: rdb, prefix: prefix}
}

func (q *JobQueue) key(id string) string { return q.prefix + id }

// Enqueue stores the job record. Dispatching the actual run needs the
// search context as well; see EnqueueRun.
func (q *JobQueue) Enqueue(ctx context.Context, job *types.EvaluationJob) error {
	return q.save(ctx, job)
}

// EnqueueRun stores the job record and submits the run to asynq.
func (q *JobQueue) EnqueueRun(ctx context.Context, job *types.EvaluationJob, sctx *types.SearchContext) error {
	job.Status = types.EvaluationJobPending
	job.StartTime = time.Now()
	if err := q.save(ctx, job); err != nil {
		return err
	}
	payload, err := json.Marshal(runPayload{JobID: job.ID, Context: sctx})
	if err != nil {
		return fmt.Errorf("marshal evaluation payload: %w", err)
	}
	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TypeEvaluationRun, payload), asynq.Queue("low"))
	return err
}

// Get loads a job record by id.
func (q *JobQueue) Get(ctx context.Context, id string) (*types.EvaluationJob, error) {
	raw, err := q.rdb.Get(ctx, q.key(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("evaluation job not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	var job types.EvaluationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Update overwrites a job record.
func (q *JobQueue) Update(ctx context.Context, job *types.EvaluationJob) error {
	return q.save(ctx, job)
}

func (q *JobQueue) save(ctx context.Context, job *types.EvaluationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.Set(ctx, q.key(job.ID), raw, jobTTL).Err()
}

// Worker consumes queued evaluation runs. Registered on the process asynq
// server mux under TypeEvaluationRun.
type Worker struct {
	store     interfaces.EvaluationJobStore
	evaluator interfaces.Evaluator
}

// NewWorker builds the evaluation task worker.
func NewWorker(store interfaces.EvaluationJobStore, evaluator interfaces.Evaluator) *Worker {
	return &Worker{store: store, evaluator: evaluator}
}

// HandleEvaluationTask runs one queued evaluation and writes its report
// back to the job record. A failed run marks the job failed rather than
// returning an error: the run is not retriable once its context snapshot
// has been judged unusable.
func (w *Worker) HandleEvaluationTask(ctx context.Context, task *asynq.Task) error {
	var payload runPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal evaluation payload: %w", err)
	}

	job, err := w.store.Get(ctx, payload.JobID)
	if err != nil {
		return err
	}
	job.Status = types.EvaluationJobRunning
	if err := w.store.Update(ctx, job); err != nil {
		return err
	}

	report, err := w.evaluator.Evaluate(ctx, payload.Context)
	if err != nil {
		logger.Errorf(ctx, "evaluation job %s failed: %v", job.ID, err)
		job.Status = types.EvaluationJobFailed
		job.ErrMsg = err.Error()
		return w.store.Update(ctx, job)
	}

	job.Status = types.EvaluationJobSuccess
	job.Report = report
	logger.Infof(ctx, "evaluation job %s completed, mode: %s", job.ID, w.evaluator.Mode())
	return w.store.Update(ctx, job)
}
