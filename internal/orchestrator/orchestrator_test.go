package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/zimalabs/genflow/internal/cache"
	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/renderer"
	"github.com/zimalabs/genflow/internal/warmpool"
	"github.com/zimalabs/genflow/internal/workspace"
	"github.com/zimalabs/genflow/pkg/models"
)

// scriptRenderer replays a fixed event sequence, honoring its context so
// timeout paths terminate.
type scriptRenderer struct {
	ctx    context.Context
	script []renderer.Event
	delay  time.Duration
	events chan renderer.Event
}

func (s *scriptRenderer) Start(prompt string, opts renderer.StartOptions) error {
	go func() {
		defer close(s.events)
		for _, ev := range s.script {
			if s.delay > 0 {
				select {
				case <-s.ctx.Done():
					return
				case <-time.After(s.delay):
				}
			}
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
	mu     sync.Mutex
	script []renderer.Event
	delay  time.Duration
	calls  int
}

func (f *scriptFactory) New(ctx context.Context) renderer.Renderer {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &scriptRenderer{
		ctx:    ctx,
		script: f.script,
		delay:  f.delay,
		events: make(chan renderer.Event, 16),
	}
}

func testConfig() *config.Config {
	return &config.Config{
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
}

func newTestOrchestrator(t *testing.T, factory renderer.Factory) *Orchestrator {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	respCache := cache.New(time.Minute, 100, 0)
	pool := warmpool.New(factory, 30*time.Minute, time.Hour)
	return New(testConfig(), respCache, pool, ws, factory)
}

func successScript(text string) []renderer.Event {
	return []renderer.Event{
		{Type: renderer.EventContent, Text: text, Model: "model-reported"},
		{Type: renderer.EventUsage, Usage: &models.Usage{InputTokens: 10, OutputTokens: 5, Cost: 0.01}},
	}
}

func TestGenerateSuccess(t *testing.T) {
	factory := &scriptFactory{script: successScript("A balance sheet lists assets and liabilities.")}
	o := newTestOrchestrator(t, factory)

	res, err := o.Generate(context.Background(), &models.GenerationRequest{
		Prompt:    "What is a balance sheet?",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !res.Success {
		t.Fatalf("result not successful: %+v", res)
	}
	if res.Output != "A balance sheet lists assets and liabilities." {
		t.Errorf("output = %q", res.Output)
	}
	if res.Model != "model-reported" {
		t.Errorf("model = %q, want the renderer-reported model", res.Model)
	}
	if res.Complexity != models.ComplexitySimple {
		t.Errorf("complexity = %s, want simple", res.Complexity)
	}
	if res.Usage.InputTokens != 10 || res.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", res.Usage)
	}
	if res.RequestID == "" {
		t.Error("request id missing")
	}
}

func TestGenerateEmptyPromptRejected(t *testing.T) {
	o := newTestOrchestrator(t, &scriptFactory{})

	if _, err := o.Generate(context.Background(), &models.GenerationRequest{Prompt: "   "}); err == nil {
		t.Fatal("empty prompt must be rejected before any renderer work")
	}
}

func TestGenerateServesCacheHit(t *testing.T) {
	factory := &scriptFactory{script: successScript("cached answer")}
	o := newTestOrchestrator(t, factory)

	req := &models.GenerationRequest{Prompt: "What is a pivot table?"}
	first, err := o.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	second, err := o.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if second.Output != first.Output {
		t.Errorf("cache hit output = %q, want %q", second.Output, first.Output)
	}
	if second.RequestID == first.RequestID {
		t.Error("cache hit must carry a fresh request id")
	}
	if stats := o.Cache().Stats(); stats.Hits != 1 {
		t.Errorf("cache hits = %d, want 1", stats.Hits)
	}
}

func TestGenerateCacheHitAnnotated(t *testing.T) {
	factory := &scriptFactory{script: successScript("cached answer")}
	o := newTestOrchestrator(t, factory)

	req := &models.GenerationRequest{Prompt: "What is a ledger?"}
	first, err := o.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	second, err := o.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if second.Message != "served from cache" {
		t.Errorf("cache hit message = %q, want a cached-response annotation", second.Message)
	}
	if second.Message == first.Message {
		t.Error("cached reply must be distinguishable from a fresh generation")
	}
	// The hit avoids the renderer spend of the original call.
	if second.CostSavings <= first.CostSavings {
		t.Errorf("cache hit savings = %v, want more than fresh %v", second.CostSavings, first.CostSavings)
	}
}

func TestGenerateCreationPromptNotCached(t *testing.T) {
	factory := &scriptFactory{script: successScript("done")}
	o := newTestOrchestrator(t, factory)

	req := &models.GenerationRequest{Prompt: "Please make a short haiku"}
	if _, err := o.Generate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if o.Cache().Len() != 0 {
		t.Error("creation-verb prompt must never be cached")
	}
}

func TestGenerateTimeoutReturnsPartialOutput(t *testing.T) {
	factory := &scriptFactory{
		script: []renderer.Event{
			{Type: renderer.EventContent, Text: "partial "},
			{Type: renderer.EventContent, Text: "never arrives"},
		},
		delay: 80 * time.Millisecond,
	}
	o := newTestOrchestrator(t, factory)
	o.cfg.Timeouts.Generation = 120 * time.Millisecond

	res, err := o.Generate(context.Background(), &models.GenerationRequest{Prompt: "how slow is this"})
	if err != nil {
		t.Fatalf("timeout must yield a failed result, not an error: %v", err)
	}
	if res.Success {
		t.Fatal("timed-out generation must not be successful")
	}
	if !strings.Contains(res.Message, "timed out") {
		t.Errorf("message = %q", res.Message)
	}
	if res.Output != "partial " {
		t.Errorf("partial output = %q, want it preserved", res.Output)
	}
}

func TestGenerateRendererErrorEvent(t *testing.T) {
	factory := &scriptFactory{script: []renderer.Event{
		{Type: renderer.EventError, Err: "model overloaded"},
	}}
	o := newTestOrchestrator(t, factory)

	res, err := o.Generate(context.Background(), &models.GenerationRequest{Prompt: "why did it break"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("error event must fail the result")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "model overloaded" {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestGenerateStreamingEventOrder(t *testing.T) {
	factory := &scriptFactory{script: []renderer.Event{
		{Type: renderer.EventContent, Text: "Hello"},
		{Type: renderer.EventContent, Text: " world"},
		{Type: renderer.EventUsage, Usage: &models.Usage{InputTokens: 10, OutputTokens: 5}},
	}}
	o := newTestOrchestrator(t, factory)

	var events []models.StreamEvent
	err := o.GenerateStreaming(context.Background(), &models.GenerationRequest{
		Prompt: "why is the sky blue",
	}, func(ev models.StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 4 {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	if events[0].Type != models.StreamStart {
		t.Errorf("first event = %s, want start", events[0].Type)
	}
	if events[1].Text != "Hello" || events[2].Text != " world" {
		t.Error("content fragments out of order")
	}
	last := events[3]
	if last.Type != models.StreamComplete {
		t.Fatalf("last event = %s, want complete", last.Type)
	}
	if last.Output != "Hello world" {
		t.Errorf("complete output = %q", last.Output)
	}
	if last.Usage == nil || last.Usage.InputTokens != 10 {
		t.Errorf("complete usage = %+v", last.Usage)
	}
}

func TestGenerateStreamingEmitsFilesEvent(t *testing.T) {
	factory := &scriptFactory{script: []renderer.Event{
		{Type: renderer.EventContent, Text: "writing your report"},
		{Type: renderer.EventUsage, Usage: &models.Usage{InputTokens: 10, OutputTokens: 5}},
	}}
	o := newTestOrchestrator(t, factory)

	var events []models.StreamEvent
	err := o.GenerateStreaming(context.Background(), &models.GenerationRequest{
		Prompt: "Make a revenue report spreadsheet",
	}, func(ev models.StreamEvent) {
		events = append(events, ev)
		// Simulate the renderer writing into the output root mid-stream.
		if ev.Type == models.StreamContent {
			path := filepath.Join(o.workspace.Root(), "revenue.xlsx")
			if werr := os.WriteFile(path, []byte("cells"), 0o644); werr != nil {
				t.Error(werr)
			}
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	var filesEvent *models.StreamEvent
	for i := range events {
		if events[i].Type == models.StreamFiles {
			filesEvent = &events[i]
		}
	}
	if filesEvent == nil {
		t.Fatalf("no files event in %+v", events)
	}
	if len(filesEvent.Files) != 1 || filesEvent.Files[0].Name != "revenue.xlsx" {
		t.Errorf("files = %+v", filesEvent.Files)
	}
	if events[len(events)-1].Type != models.StreamComplete {
		t.Error("files event must precede complete")
	}
}

func TestGenerateStreamingEmitsErrorEvent(t *testing.T) {
	factory := &scriptFactory{script: []renderer.Event{
		{Type: renderer.EventError, Err: "boom"},
	}}
	o := newTestOrchestrator(t, factory)

	var events []models.StreamEvent
	err := o.GenerateStreaming(context.Background(), &models.GenerationRequest{
		Prompt: "does this fail",
	}, func(ev models.StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatal(err)
	}

	last := events[len(events)-1]
	if last.Type != models.StreamError || last.Message != "boom" {
		t.Errorf("last event = %+v, want error boom", last)
	}
}

func TestExecuteParallelAggregates(t *testing.T) {
	factory := &scriptFactory{script: successScript("one file written")}
	o := newTestOrchestrator(t, factory)

	res, err := o.ExecuteParallel(context.Background(), &models.GenerationRequest{
		Prompt: "Create 3 Excel files comparing quarterly revenue",
	})
	if err != nil {
		t.Fatal(err)
	}

	if !res.Success {
		t.Fatalf("aggregate should succeed: %+v", res)
	}
	if res.Message != "3 of 3 sub-tasks succeeded" {
		t.Errorf("message = %q", res.Message)
	}
	if got := strings.Count(res.Output, "one file written"); got != 3 {
		t.Errorf("aggregated output has %d sub-outputs, want 3", got)
	}
	if res.Usage.InputTokens != 30 || res.Usage.OutputTokens != 15 {
		t.Errorf("summed usage = %+v", res.Usage)
	}
}

func TestExecuteParallelDelegatesAtomicPrompt(t *testing.T) {
	factory := &scriptFactory{script: successScript("single")}
	o := newTestOrchestrator(t, factory)

	res, err := o.ExecuteParallel(context.Background(), &models.GenerationRequest{
		Prompt: "Create a budget spreadsheet",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "single" {
		t.Errorf("output = %q, want the single-task result", res.Output)
	}
	if strings.Contains(res.Message, "sub-tasks") {
		t.Errorf("atomic prompt must not report sub-task aggregation: %q", res.Message)
	}
}

func TestGenerateTitle(t *testing.T) {
	factory := &scriptFactory{script: []renderer.Event{
		{Type: renderer.EventContent, Text: "\"**Quarterly Revenue Review**\""},
	}}
	o := newTestOrchestrator(t, factory)

	title := o.GenerateTitle(context.Background(), "Can you walk me through the quarterly revenue numbers?")
	if title != "Quarterly Revenue Review" {
		t.Errorf("title = %q", title)
	}
}

func TestGenerateTitleFallsBackOnFailure(t *testing.T) {
	// Renderer emits nothing; the cleaned result is empty.
	factory := &scriptFactory{script: nil}
	o := newTestOrchestrator(t, factory)

	title := o.GenerateTitle(context.Background(), "A very plain first message")
	if title != "A very plain first message" {
		t.Errorf("fallback title = %q", title)
	}
}

func TestGenerateTitleTruncates(t *testing.T) {
	factory := &scriptFactory{script: nil}
	o := newTestOrchestrator(t, factory)

	long := strings.Repeat("words ", 20)
	title := o.GenerateTitle(context.Background(), long)
	if len(title) > titleMaxLen {
		t.Errorf("title length = %d, want <= %d", len(title), titleMaxLen)
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("truncated title missing ellipsis: %q", title)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// Multi-byte runes must never be split mid-sequence.
	long := strings.Repeat("é", 60)
	got := truncate(long, titleMaxLen)

	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
	if len(got) > titleMaxLen {
		t.Errorf("len = %d, want <= %d", len(got), titleMaxLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
}

func TestGenerateTitleNonASCIIFallback(t *testing.T) {
	factory := &scriptFactory{script: nil}
	o := newTestOrchestrator(t, factory)

	title := o.GenerateTitle(context.Background(), strings.Repeat("日本語のメッセージ ", 10))
	if !utf8.ValidString(title) {
		t.Errorf("fallback title is not valid UTF-8: %q", title)
	}
	if len(title) > titleMaxLen {
		t.Errorf("title length = %d, want <= %d", len(title), titleMaxLen)
	}
}

func TestSummarizeFallsBackOnFailure(t *testing.T) {
	factory := &scriptFactory{script: nil}
	o := newTestOrchestrator(t, factory)

	got := o.Summarize(context.Background(), []models.ConversationMessage{
		{Role: "user", Content: "We discussed the budget."},
	})
	if !strings.Contains(got, "We discussed the budget.") {
		t.Errorf("fallback summary = %q", got)
	}
}
