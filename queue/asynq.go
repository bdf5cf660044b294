package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const taskTypeParse = "contract:parse"

type parsePayload struct {
	ContractID string `json:"contract_id"`
}

// AsynqScheduler distributes parses over a Redis-backed Asynq queue.
// Tasks never retry; a failed parse is terminal for its record.
type AsynqScheduler struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	run    Runner
}

func NewAsynqScheduler(redisURL string, workers int, run Runner) (*AsynqScheduler, error) {
	if workers <= 0 {
		workers = 4
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: workers,
		Queues: map[string]int{
			"contracts": 1,
		},
	})

	scheduler := &AsynqScheduler{
		client: client,
		server: server,
		mux:    asynq.NewServeMux(),
		run:    run,
	}
	scheduler.mux.HandleFunc(taskTypeParse, scheduler.handleParse)
	return scheduler, nil
}

// Start runs the Asynq worker server in the background.
func (s *AsynqScheduler) Start(_ context.Context) {
	go func() {
		if err := s.server.Run(s.mux); err != nil && err != asynq.ErrServerClosed {
			slog.Error("asynq server stopped", "error", err)
		}
	}()
}

func (s *AsynqScheduler) Enqueue(ctx context.Context, contractID string) error {
	body, err := json.Marshal(parsePayload{ContractID: contractID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeParse, body, asynq.Queue("contracts"))
	if _, err := s.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue parse: %w", err)
	}
	return nil
}

func (s *AsynqScheduler) handleParse(ctx context.Context, task *asynq.Task) error {
	var payload parsePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.ContractID == "" {
		return fmt.Errorf("missing contract_id in payload")
	}

	// The runner records its own failures; nothing to retry here.
	s.run(ctx, payload.ContractID)
	return nil
}

// Shutdown stops the worker server and closes the client.
func (s *AsynqScheduler) Shutdown() {
	s.server.Shutdown()
	s.client.Close()
}
