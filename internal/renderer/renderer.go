// Package renderer invokes the external generative renderer and normalizes
// its newline-delimited JSON event stream.
package renderer

import (
	"context"

	"github.com/zimalabs/genflow/pkg/models"
)

// EventType identifies a normalized internal event.
type EventType string

const (
	// EventContent carries one generated text fragment.
	EventContent EventType = "content"
	// EventUsage carries final token counts and computed cost. Its Text
	// field holds the renderer's structured result text when one was
	// reported.
	EventUsage EventType = "usage"
	// EventError carries a renderer-reported error message.
	EventError EventType = "error"
)

// Event is one element of the normalized internal event sequence produced
// from a renderer invocation.
type Event struct {
	Type EventType
	// Text is the content fragment, or the structured result text on a
	// usage event.
	Text string
	// Model is the model identifier, set once the renderer reports it.
	Model string
	// Usage is set on usage events, with cost already computed.
	Usage *models.Usage
	// Err is the error message on error events.
	Err string
}

// StartOptions contains optional parameters for starting a renderer.
type StartOptions struct {
	// Model is the model identifier to request. Empty uses the backend default.
	Model string
	// WorkDir is the working directory for the invocation, if any.
	WorkDir string
}

// Renderer is one single-use renderer invocation. Implementations exist for
// the subprocess backend (a CLI emitting stream-json on stdout) and the
// direct API backend.
type Renderer interface {
	// Start launches the invocation with the given prompt. The prompt is
	// delivered out-of-band (stdin for the subprocess backend), never via
	// command-line argument.
	Start(prompt string, opts StartOptions) error

	// Events returns the normalized event channel. It is closed when the
	// invocation finishes or is killed.
	Events() <-chan Event

	// Wait blocks until the invocation completes and returns any error.
	Wait() error

	// Kill terminates the invocation immediately.
	Kill() error

	// Stderr returns captured standard error output. Empty for backends
	// without a process.
	Stderr() string
}

// Factory creates Renderer instances. Each invocation gets a fresh Renderer;
// they are not reusable.
type Factory interface {
	New(ctx context.Context) Renderer
}
