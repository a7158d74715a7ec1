package worker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/cadence/internal/exchange"
	"github.com/hyperengineering/cadence/internal/types"
)

type mockExporter struct{}

func (mockExporter) Export() exchange.Document {
	return exchange.New([]types.Goal{{ID: 1, Title: "Run"}}, nil, types.LedgerState{}, time.Now())
}

// mockUploader implements backup.Uploader for testing
type mockUploader struct {
	mu      sync.Mutex
	uploads [][]byte
	err     error
}

func (m *mockUploader) Upload(ctx context.Context, data []byte, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, data)
	return "exports/x.json", nil
}

func (m *mockUploader) PresignedURL(ctx context.Context) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (m *mockUploader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func TestBackupWorker_UploadsImmediately(t *testing.T) {
	up := &mockUploader{}
	worker := NewBackupWorker(mockExporter{}, up, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	if n := up.count(); n != 1 {
		t.Fatalf("Expected 1 upload on start, got %d", n)
	}
	if _, err := exchange.Decode(bytes.NewReader(up.uploads[0])); err != nil {
		t.Errorf("uploaded document does not decode: %v", err)
	}
}

func TestBackupWorker_RunsOnSchedule(t *testing.T) {
	up := &mockUploader{}
	worker := NewBackupWorker(mockExporter{}, up, 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	time.Sleep(110 * time.Millisecond)
	cancel()

	if n := up.count(); n < 3 {
		t.Errorf("Expected at least 3 uploads, got %d", n)
	}
}

func TestBackupWorker_SurvivesUploadError(t *testing.T) {
	up := &mockUploader{err: errors.New("bucket missing")}
	worker := NewBackupWorker(mockExporter{}, up, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}
