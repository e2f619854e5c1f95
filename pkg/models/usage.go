package models

// Usage holds token counters reported by the renderer plus the computed cost.
type Usage struct {
	// InputTokens is the count of prompt tokens consumed.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the count of generated tokens.
	OutputTokens int64 `json:"output_tokens"`
	// CacheWriteTokens is the count of tokens written to the backend prompt cache.
	CacheWriteTokens int64 `json:"cache_write_tokens"`
	// CacheReadTokens is the count of tokens served from the backend prompt cache.
	CacheReadTokens int64 `json:"cache_read_tokens"`
	// Cost is the computed dollar cost for this usage.
	Cost float64 `json:"cost"`
}

// Add accumulates another usage record into this one, summing every token
// category and the cost.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheWriteTokens += other.CacheWriteTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.Cost += other.Cost
}

// TotalTokens returns the sum of input and output tokens.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}
