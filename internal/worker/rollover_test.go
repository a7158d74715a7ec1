package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// mockRefresher implements Refresher for testing
type mockRefresher struct {
	mu    sync.Mutex
	calls int
	res   types.RefreshResult
	err   error
}

func (m *mockRefresher) Refresh(ctx context.Context) (types.RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.res, m.err
}

func (m *mockRefresher) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRolloverWorker_RunsOnSchedule(t *testing.T) {
	tracker := &mockRefresher{res: types.RefreshResult{Reset: []int64{1}}}
	worker := NewRolloverWorker(tracker, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// Wait for at least 2 ticks
	time.Sleep(130 * time.Millisecond)
	cancel()

	if calls := tracker.getCalls(); calls < 2 {
		t.Errorf("Expected at least 2 refresh calls, got %d", calls)
	}
}

func TestRolloverWorker_DoesNotRunImmediately(t *testing.T) {
	tracker := &mockRefresher{}
	worker := NewRolloverWorker(tracker, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	if calls := tracker.getCalls(); calls != 0 {
		t.Errorf("Expected 0 refresh calls, got %d", calls)
	}
}

func TestRolloverWorker_GracefulShutdown(t *testing.T) {
	worker := NewRolloverWorker(&mockRefresher{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}

func TestRolloverWorker_ContinuesAfterError(t *testing.T) {
	tracker := &mockRefresher{err: errors.New("disk full")}
	worker := NewRolloverWorker(tracker, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	if calls := tracker.getCalls(); calls < 2 {
		t.Errorf("Worker should keep running after errors, got %d calls", calls)
	}
}
