package renderer

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/zimalabs/genflow/internal/pricing"
	"github.com/zimalabs/genflow/pkg/models"
)

// APIRenderer implements Renderer against the Anthropic Messages API
// directly, bypassing the subprocess. It emits the same normalized event
// sequence: content, then one usage event.
type APIRenderer struct {
	client anthropic.Client
	prices *pricing.Table

	ctx     context.Context
	cancel  context.CancelFunc
	eventCh chan Event
	done    chan struct{}

	mu      sync.Mutex
	started bool
	runErr  error
}

// NewAPIRenderer creates an API-backed renderer invocation.
func NewAPIRenderer(ctx context.Context, apiKey string, prices *pricing.Table) *APIRenderer {
	ctx, cancel := context.WithCancel(ctx)
	return &APIRenderer{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		prices:  prices,
		ctx:     ctx,
		cancel:  cancel,
		eventCh: make(chan Event, 100),
		done:    make(chan struct{}),
	}
}

// Start launches the API call in the background.
func (a *APIRenderer) Start(prompt string, opts StartOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("renderer already started")
	}
	a.started = true

	go a.run(prompt, opts.Model)
	return nil
}

func (a *APIRenderer) run(prompt, model string) {
	defer close(a.eventCh)
	defer close(a.done)

	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}

	resp, err := a.client.Messages.New(a.ctx, anthropic.MessageNewParams{
		Model:     m,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		a.mu.Lock()
		a.runErr = err
		a.mu.Unlock()
		a.emit(Event{Type: EventError, Err: fmt.Sprintf("API error: %v", err)})
		return
	}

	reportedModel := string(resp.Model)
	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
			a.emit(Event{Type: EventContent, Text: variant.Text, Model: reportedModel})
		}
	}

	usage := models.Usage{
		InputTokens:      resp.Usage.InputTokens,
		OutputTokens:     resp.Usage.OutputTokens,
		CacheWriteTokens: resp.Usage.CacheCreationInputTokens,
		CacheReadTokens:  resp.Usage.CacheReadInputTokens,
	}
	usage.Cost = a.prices.Cost(reportedModel, usage)

	a.emit(Event{Type: EventUsage, Text: text, Model: reportedModel, Usage: &usage})
}

func (a *APIRenderer) emit(event Event) {
	select {
	case a.eventCh <- event:
	case <-a.ctx.Done():
	}
}

// Events returns the normalized event channel.
func (a *APIRenderer) Events() <-chan Event {
	return a.eventCh
}

// Wait blocks until the API call finishes.
func (a *APIRenderer) Wait() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return fmt.Errorf("renderer not started")
	}
	a.mu.Unlock()

	<-a.done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runErr
}

// Kill cancels the in-flight API call.
func (a *APIRenderer) Kill() error {
	a.cancel()
	return nil
}

// Stderr returns an empty string; the API backend has no process.
func (a *APIRenderer) Stderr() string {
	return ""
}

// Verify APIRenderer implements Renderer at compile time.
var _ Renderer = (*APIRenderer)(nil)
