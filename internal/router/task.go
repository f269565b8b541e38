package router

import (
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/dig"

	"github.com/fenwick-ai/ragengine/internal/evaluate"
)

// AsynqTaskParams bundles the background task server and its workers.
type AsynqTaskParams struct {
	dig.In

	Server *asynq.Server
	Worker *evaluate.Worker
}

func getAsynqRedisClientOpt() *asynq.RedisClientOpt {
	opt := &asynq.RedisClientOpt{
		Addr:         os.Getenv("REDIS_ADDR"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		DB:           0,
	}
	return opt
}

// NewAsyncqClient builds the asynq producer used to enqueue background runs.
func NewAsyncqClient() *asynq.Client {
	opt := getAsynqRedisClientOpt()
	client := asynq.NewClient(opt)
	return client
}

// NewAsynqServer builds the asynq consumer server.
func NewAsynqServer() *asynq.Server {
	opt := getAsynqRedisClientOpt()
	srv := asynq.NewServer(
		opt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6, // Highest priority queue
				"default":  3, // Default priority queue
				"low":      1, // Lowest priority queue
			},
		},
	)
	return srv
}

// RunAsynqServer registers the background workers and starts the consumer.
func RunAsynqServer(params AsynqTaskParams) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(evaluate.TypeEvaluationRun, params.Worker.HandleEvaluationTask)

	go func() {
		if err := params.Server.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
	return mux
}
