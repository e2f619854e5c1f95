package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimalabs/genflow/internal/cache"
	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/jobs"
	"github.com/zimalabs/genflow/internal/orchestrator"
	"github.com/zimalabs/genflow/internal/renderer"
	"github.com/zimalabs/genflow/internal/warmpool"
	"github.com/zimalabs/genflow/internal/workspace"
	"github.com/zimalabs/genflow/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptRenderer replays a fixed event sequence.
type scriptRenderer struct {
	ctx    context.Context
	script []renderer.Event
	events chan renderer.Event
}

func (s *scriptRenderer) Start(prompt string, opts renderer.StartOptions) error {
	go func() {
		defer close(s.events)
		for _, ev := range s.script {
			select {
			case <-s.ctx.Done():
				return
			case s.events <- ev:
			}
		}
	}()
	return nil
}

func (s *scriptRenderer) Events() <-chan renderer.Event { return s.events }
func (s *scriptRenderer) Wait() error                   { return s.ctx.Err() }
func (s *scriptRenderer) Kill() error                   { return nil }
func (s *scriptRenderer) Stderr() string                { return "" }

type scriptFactory struct {
	script []renderer.Event
}

func (f *scriptFactory) New(ctx context.Context) renderer.Renderer {
	return &scriptRenderer{ctx: ctx, script: f.script, events: make(chan renderer.Event, 16)}
}

func newTestServer(t *testing.T, script []renderer.Event) (*Server, *workspace.Workspace) {
	t.Helper()

	cfg := &config.Config{
		Models: config.ModelsConfig{
			Simple:   "model-simple",
			Standard: "model-standard",
			Complex:  "model-complex",
		},
		Timeouts: config.TimeoutsConfig{
			Generation: 5 * time.Second,
			Title:      time.Second,
			Summarize:  time.Second,
		},
	}

	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	factory := &scriptFactory{script: script}
	orch := orchestrator.New(cfg,
		cache.New(time.Minute, 100, 0),
		warmpool.New(factory, 30*time.Minute, time.Hour),
		ws, factory)

	registry := jobs.New(orch)
	t.Cleanup(registry.Stop)

	return NewServer(orch, registry, ws), ws
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func answerScript(text string) []renderer.Event {
	return []renderer.Event{
		{Type: renderer.EventContent, Text: text},
		{Type: renderer.EventUsage, Usage: &models.Usage{InputTokens: 10, OutputTokens: 5}},
	}
}

func TestHandleGenerate(t *testing.T) {
	server, _ := newTestServer(t, answerScript("an answer"))
	router := server.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate", gin.H{
		"prompt": "What is a ledger?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var result models.GenerationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Output != "an answer" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleGenerateMissingPrompt(t *testing.T) {
	server, _ := newTestServer(t, nil)
	router := server.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate", gin.H{"context": "no prompt"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGenerateBadSessionID(t *testing.T) {
	server, _ := newTestServer(t, nil)
	router := server.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate", gin.H{
		"prompt":     "hello",
		"session_id": "../../etc/passwd",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGenerateStreamOrder(t *testing.T) {
	server, _ := newTestServer(t, answerScript("streamed text"))
	router := server.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate/stream", gin.H{
		"prompt": "Why do ledgers balance?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var types []string
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var ev models.StreamEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad stream line %q: %v", scanner.Text(), err)
		}
		types = append(types, string(ev.Type))
	}

	want := []string{"start", "content", "complete"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, answerScript("job output"))
	router := server.Router()

	w := doJSON(t, router, http.MethodPost, "/api/jobs", gin.H{
		"prompt": "Write a short poem please",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body = %s", w.Code, w.Body.String())
	}

	var handle models.JobHandle
	if err := json.Unmarshal(w.Body.Bytes(), &handle); err != nil {
		t.Fatal(err)
	}
	if handle.JobID == "" {
		t.Fatal("missing job id")
	}

	w = doJSON(t, router, http.MethodGet, "/api/jobs/"+handle.JobID+"/wait?timeoutSeconds=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("wait status = %d body = %s", w.Code, w.Body.String())
	}

	var job models.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Errorf("job status = %s", job.Status)
	}
	if job.Result == nil || job.Result.Output != "job output" {
		t.Errorf("job result = %+v", job.Result)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)
	router := server.Router()

	w := doJSON(t, router, http.MethodGet, "/api/jobs/unknown-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestJobWaitRejectsOversizedTimeout(t *testing.T) {
	server, _ := newTestServer(t, nil)
	router := server.Router()

	w := doJSON(t, router, http.MethodGet, "/api/jobs/any/wait?timeoutSeconds=9000", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDownloadGeneratedFile(t *testing.T) {
	server, ws := newTestServer(t, nil)
	router := server.Router()

	sessionDir := filepath.Join(ws.Root(), "sess-9")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "report.xlsx"), []byte("cells"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/files/sess-9/report.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "cells" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestDownloadRejectsTraversal(t *testing.T) {
	server, _ := newTestServer(t, nil)
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/files/..%2f..%2fetc%2fpasswd", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Error("path traversal must not be served")
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, answerScript("x"))
	router := server.Router()

	w := doJSON(t, router, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, key := range []string{"cache", "warm_pool", "jobs"} {
		if !strings.Contains(body, key) {
			t.Errorf("stats body missing %q: %s", key, body)
		}
	}
}
