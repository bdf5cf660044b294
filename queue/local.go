// Package queue provides the background parse schedulers: an
// in-process bounded worker pool and a Redis-backed Asynq variant.
package queue

import (
	"context"
	"log/slog"
	"sync"
)

// Runner executes the background parse for one contract. It must
// contain its own failures; the schedulers never retry.
type Runner func(ctx context.Context, contractID string)

// LocalScheduler runs parses on a fixed pool of worker goroutines fed
// by a bounded channel, so resource usage under load stays bounded.
type LocalScheduler struct {
	ch      chan string
	workers int
	run     Runner

	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewLocalScheduler(workers, bufferSize int, run Runner) *LocalScheduler {
	if workers <= 0 {
		workers = 4
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &LocalScheduler{
		ch:      make(chan string, bufferSize),
		workers: workers,
		run:     run,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (s *LocalScheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker(ctx)
		}
		slog.Info("local scheduler started", "workers", s.workers, "buffer", cap(s.ch))
	})
}

func (s *LocalScheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case contractID := <-s.ch:
			s.run(ctx, contractID)
		}
	}
}

// Enqueue submits a contract for parsing. It blocks while the buffer
// is full, which backpressures uploads instead of growing unbounded.
func (s *LocalScheduler) Enqueue(ctx context.Context, contractID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- contractID:
		return nil
	}
}

// Wait blocks until all workers have exited after cancellation.
func (s *LocalScheduler) Wait() {
	s.wg.Wait()
}
