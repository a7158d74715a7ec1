// Package e2e drives the full cadence stack over real document stores
// through the HTTP API.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/cadence/internal/api"
	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/notify"
	"github.com/hyperengineering/cadence/internal/service"
	"github.com/hyperengineering/cadence/internal/types"
)

const testAPIKey = "e2e-secret"

// quietLogs discards slog output for the duration of the test.
func quietLogs(t *testing.T) {
	t.Helper()
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })
}

// server is one running cadence instance.
type server struct {
	t       *testing.T
	tracker *service.Tracker
	http    *httptest.Server
}

// startServer loads a tracker over store and serves the API. The server is
// closed when the test ends; the store is left to the caller.
func startServer(t *testing.T, store docstore.Store) *server {
	t.Helper()
	tracker := service.New(service.Options{
		Store:     store,
		Scheduler: notify.NewLogScheduler(),
		Location:  time.UTC,
	})
	if _, err := tracker.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ts := httptest.NewServer(api.NewRouter(api.NewHandler(tracker, nil, testAPIKey, "e2e", "test")))
	t.Cleanup(ts.Close)
	return &server{t: t, tracker: tracker, http: ts}
}

// openSQLite opens a fresh database file under dir.
func openSQLite(t *testing.T, dir string) *docstore.SQLiteStore {
	t.Helper()
	s, err := docstore.NewSQLiteStore(filepath.Join(dir, "cadence.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return s
}

// call sends an authenticated JSON request and decodes a 2xx body into out.
// It returns the status code.
func (s *server) call(method, path string, body, out any) int {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.http.URL+path, r)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Client().Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *server) createGoal(in types.NewGoal) types.Goal {
	s.t.Helper()
	var g types.Goal
	if code := s.call(http.MethodPost, "/api/v1/goals", in, &g); code != http.StatusCreated {
		s.t.Fatalf("create goal %q: status %d", in.Title, code)
	}
	return g
}

func (s *server) goal(id int64) types.Goal {
	s.t.Helper()
	var st types.GoalStatus
	if code := s.call(http.MethodGet, fmt.Sprintf("/api/v1/goals/%d", id), nil, &st); code != http.StatusOK {
		s.t.Fatalf("get goal %d: status %d", id, code)
	}
	return st.Goal
}

func (s *server) points() types.PointsResponse {
	s.t.Helper()
	var p types.PointsResponse
	s.call(http.MethodGet, "/api/v1/points", nil, &p)
	return p
}

func progress(delta float64) types.ProgressRequest {
	return types.ProgressRequest{Delta: &delta}
}

// eventually polls cond until it holds or the timeout passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}
