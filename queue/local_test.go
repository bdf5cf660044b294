package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLocalSchedulerProcessesAll(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{}, 100)

	scheduler := NewLocalScheduler(3, 16, func(_ context.Context, contractID string) {
		mu.Lock()
		seen[contractID]++
		mu.Unlock()
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	const total = 20
	for i := 0; i < total; i++ {
		if err := scheduler.Enqueue(ctx, fmt.Sprintf("contract-%d", i)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for i := 0; i < total; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for parse %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != total {
		t.Errorf("Expected %d distinct contracts processed, got %d", total, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Contract %s processed %d times, want 1", id, count)
		}
	}
}

func TestLocalSchedulerBoundedWorkers(t *testing.T) {
	var mu sync.Mutex
	running := 0
	peak := 0
	release := make(chan struct{})
	done := make(chan struct{}, 10)

	scheduler := NewLocalScheduler(2, 16, func(_ context.Context, _ string) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		<-release

		mu.Lock()
		running--
		mu.Unlock()
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	for i := 0; i < 6; i++ {
		if err := scheduler.Enqueue(ctx, fmt.Sprintf("contract-%d", i)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	// Let workers pick up tasks, then unblock everything.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 6; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for parse %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent parses, observed %d", peak)
	}
}

func TestLocalSchedulerEnqueueCancelled(t *testing.T) {
	// Full buffer and no workers running: Enqueue must respect ctx.
	scheduler := NewLocalScheduler(1, 1, func(context.Context, string) {})

	ctx := context.Background()
	if err := scheduler.Enqueue(ctx, "fills-buffer"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := scheduler.Enqueue(cancelled, "blocked"); err == nil {
		t.Error("Expected context error from Enqueue on full buffer")
	}
}

func TestLocalSchedulerStopsOnCancel(t *testing.T) {
	scheduler := NewLocalScheduler(2, 4, func(context.Context, string) {})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	cancel()

	stopped := make(chan struct{})
	go func() {
		scheduler.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Workers did not stop after cancellation")
	}
}
