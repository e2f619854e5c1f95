package models

// StreamEventType identifies one event in the consumer-facing streaming
// contract. Events for a single request are strictly ordered: one start,
// zero or more content events, an optional files event, then exactly one
// complete or error event.
type StreamEventType string

const (
	// StreamStart opens a streaming response with routing metadata.
	StreamStart StreamEventType = "start"
	// StreamContent carries one generated text fragment.
	StreamContent StreamEventType = "content"
	// StreamFiles reports files created during the invocation.
	StreamFiles StreamEventType = "files"
	// StreamComplete closes the stream with the aggregated result.
	StreamComplete StreamEventType = "complete"
	// StreamError closes the stream with a failure message.
	StreamError StreamEventType = "error"
)

// StreamEvent is one element of the streaming output contract.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Start fields.
	RequestID   string         `json:"request_id,omitempty"`
	Model       string         `json:"model,omitempty"`
	Complexity  TaskComplexity `json:"complexity,omitempty"`
	ContextTier ContextTier    `json:"context_tier,omitempty"`

	// Content fields.
	Text string `json:"text,omitempty"`

	// Files fields.
	Files []GeneratedFile `json:"files,omitempty"`

	// Complete fields.
	Output     string `json:"output,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
	DurationMs int64  `json:"total_duration_ms,omitempty"`

	// Error fields.
	Message string `json:"message,omitempty"`
}
