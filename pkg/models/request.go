package models

// ConversationMessage is a single turn of prior conversation supplied with a
// generation request.
type ConversationMessage struct {
	// Role is either "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// IsSummary marks messages that are condensed summaries of earlier turns.
	IsSummary bool `json:"is_summary,omitempty"`
}

// GenerationRequest describes one end-to-end generation call.
type GenerationRequest struct {
	// Prompt is the user's request. Required and non-blank.
	Prompt string `json:"prompt"`
	// Context is optional free-text conversation context.
	Context string `json:"context,omitempty"`
	// SessionID is an opaque identifier used for output grouping and
	// warm-pool keying. Optional.
	SessionID string `json:"session_id,omitempty"`
	// Messages is the ordered prior conversation, oldest first.
	Messages []ConversationMessage `json:"messages,omitempty"`
	// FileContext is the uploaded-file context block, if any.
	FileContext string `json:"file_context,omitempty"`
}
