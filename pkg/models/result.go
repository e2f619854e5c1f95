package models

import "time"

// GeneratedFile describes one file produced by a renderer invocation.
type GeneratedFile struct {
	// Name is the file name relative to the session output directory.
	Name string `json:"name"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// CreatedAt is the file creation time.
	CreatedAt time.Time `json:"created_at"`
	// ModifiedAt is the last modification time.
	ModifiedAt time.Time `json:"modified_at"`
	// DownloadURL is the transport-level path a client fetches the file from.
	DownloadURL string `json:"download_url,omitempty"`
}

// GenerationResult is the unified outcome of a generation call, synchronous
// or streaming. Both paths populate the same fields so callers can treat
// them uniformly.
type GenerationResult struct {
	// Success indicates the renderer completed without error.
	Success bool `json:"success"`
	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`
	// Output is the generated text.
	Output string `json:"output"`
	// Errors carries renderer stderr or failure detail when Success is false.
	Errors []string `json:"errors,omitempty"`
	// Model is the model identifier that served the request.
	Model string `json:"model"`
	// SessionID echoes the request's session identifier.
	SessionID string `json:"session_id,omitempty"`
	// Usage is the token and cost accounting for this call.
	Usage Usage `json:"usage"`
	// Files lists files created by this invocation.
	Files []GeneratedFile `json:"files,omitempty"`
	// Complexity is the classified task complexity.
	Complexity TaskComplexity `json:"complexity"`
	// CostSavings estimates dollars saved by routing below the top model tier.
	CostSavings float64 `json:"cost_savings,omitempty"`
	// ContextTier is the context-loading tier that was applied.
	ContextTier ContextTier `json:"context_tier"`
	// RequestID is the unique identifier assigned to this request.
	RequestID string `json:"request_id"`
	// Duration is the total elapsed wall time.
	Duration time.Duration `json:"duration"`
}
