// Package pricing holds the per-model token price table and cost math.
package pricing

import (
	"strings"

	"github.com/zimalabs/genflow/pkg/models"
)

// ModelPricing contains prices per 1M tokens for a model, split by the four
// token categories the renderer reports.
type ModelPricing struct {
	InputPerMillion      float64 `yaml:"input_per_million"`
	OutputPerMillion     float64 `yaml:"output_per_million"`
	CacheWritePerMillion float64 `yaml:"cache_write_per_million"`
	CacheReadPerMillion  float64 `yaml:"cache_read_per_million"`
}

// DefaultModel is the pricing key used when a model is not in the table.
const DefaultModel = "default"

// DefaultPricing contains pricing for known models plus the fallback entry.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4-5": {
		InputPerMillion: 5.00, OutputPerMillion: 25.00,
		CacheWritePerMillion: 6.25, CacheReadPerMillion: 0.50,
	},
	"claude-sonnet-4-5": {
		InputPerMillion: 3.00, OutputPerMillion: 15.00,
		CacheWritePerMillion: 3.75, CacheReadPerMillion: 0.30,
	},
	"claude-sonnet-4": {
		InputPerMillion: 3.00, OutputPerMillion: 15.00,
		CacheWritePerMillion: 3.75, CacheReadPerMillion: 0.30,
	},
	"claude-haiku-4-5": {
		InputPerMillion: 1.00, OutputPerMillion: 5.00,
		CacheWritePerMillion: 1.25, CacheReadPerMillion: 0.10,
	},
	"claude-3-5-haiku": {
		InputPerMillion: 0.80, OutputPerMillion: 4.00,
		CacheWritePerMillion: 1.00, CacheReadPerMillion: 0.08,
	},
	DefaultModel: {
		InputPerMillion: 3.00, OutputPerMillion: 15.00,
		CacheWritePerMillion: 3.75, CacheReadPerMillion: 0.30,
	},
}

// Table resolves model identifiers to prices and computes costs.
type Table struct {
	prices map[string]ModelPricing
}

// NewTable creates a Table seeded with the default prices.
func NewTable() *Table {
	prices := make(map[string]ModelPricing, len(DefaultPricing))
	for name, p := range DefaultPricing {
		prices[name] = p
	}
	return &Table{prices: prices}
}

// Set adds or replaces the pricing entry for a model.
func (t *Table) Set(model string, p ModelPricing) {
	t.prices[model] = p
}

// Lookup returns the pricing for a model, falling back to the default entry
// when the model is unknown.
func (t *Table) Lookup(model string) ModelPricing {
	if p, ok := t.prices[NormalizeModelName(model)]; ok {
		return p
	}
	if p, ok := t.prices[model]; ok {
		return p
	}
	return t.prices[DefaultModel]
}

// Cost computes the dollar cost for the usage under the given model's prices.
// Each token category is charged at its own per-million rate.
func (t *Table) Cost(model string, u models.Usage) float64 {
	p := t.Lookup(model)
	return float64(u.InputTokens)/1_000_000*p.InputPerMillion +
		float64(u.OutputTokens)/1_000_000*p.OutputPerMillion +
		float64(u.CacheWriteTokens)/1_000_000*p.CacheWritePerMillion +
		float64(u.CacheReadTokens)/1_000_000*p.CacheReadPerMillion
}

// NormalizeModelName strips date suffixes from model identifiers so that
// "claude-sonnet-4-5-20250929" resolves to the "claude-sonnet-4-5" entry.
func NormalizeModelName(raw string) string {
	idx := strings.LastIndex(raw, "-")
	if idx == -1 {
		return raw
	}
	suffix := raw[idx+1:]
	if len(suffix) == 8 && isDigits(suffix) {
		return raw[:idx]
	}
	return raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
