package renderer

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/zimalabs/genflow/internal/pricing"
	"github.com/zimalabs/genflow/pkg/models"
)

// Translator converts the renderer's newline-delimited JSON event stream
// into the normalized internal sequence. It is stateful for the duration of
// one invocation: it remembers the active model for cost computation and
// whether partial content deltas have already been emitted, so the final
// consolidated assistant message is never re-emitted as duplicate content.
type Translator struct {
	prices *pricing.Table

	model          string
	contentEmitted bool
}

// NewTranslator creates a Translator that computes usage costs from the
// given price table.
func NewTranslator(prices *pricing.Table) *Translator {
	return &Translator{prices: prices}
}

// Model returns the model identifier reported by the stream so far.
func (t *Translator) Model() string {
	return t.model
}

// rawLine is the superset of recognized renderer event shapes. Unknown
// fields are ignored for forward compatibility.
type rawLine struct {
	Type  string `json:"type"`
	Event *struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	} `json:"event"`
	// Message is a nested object for assistant events and a plain string
	// for error events, so it is decoded per event type.
	Message json.RawMessage `json:"message"`
	Model   string          `json:"model"`
	Result  string          `json:"result"`
	Usage   *struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	} `json:"usage"`
	Error string `json:"error"`
}

// assistantMessage is the consolidated message payload of an assistant event.
type assistantMessage struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// TranslateLine parses one line of renderer output and returns the
// normalized events it produces, possibly none. A line that is not valid
// JSON is treated as raw literal content, never as a fatal error.
func (t *Translator) TranslateLine(line []byte) []Event {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil
	}

	var raw rawLine
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		// Defensive fallback: renderers occasionally write plain text.
		t.contentEmitted = true
		return []Event{{Type: EventContent, Text: trimmed, Model: t.model}}
	}

	switch raw.Type {
	case "system":
		return nil

	case "stream_event":
		if raw.Event != nil &&
			raw.Event.Type == "content_block_delta" &&
			raw.Event.Delta.Type == "text_delta" &&
			raw.Event.Delta.Text != "" {
			t.contentEmitted = true
			return []Event{{Type: EventContent, Text: raw.Event.Delta.Text, Model: t.model}}
		}
		return nil

	case "assistant":
		// Authoritative for the model name during streaming. Its text is
		// only emitted when no partial deltas preceded it, otherwise the
		// content would duplicate.
		var msg assistantMessage
		if len(raw.Message) > 0 {
			_ = json.Unmarshal(raw.Message, &msg)
		}
		if msg.Model != "" {
			t.model = msg.Model
		}
		if t.contentEmitted {
			return nil
		}
		var events []Event
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text != "" {
				events = append(events, Event{Type: EventContent, Text: block.Text, Model: t.model})
			}
		}
		if len(events) > 0 {
			t.contentEmitted = true
		}
		return events

	case "result":
		if raw.Model != "" {
			t.model = raw.Model
		}
		usage := models.Usage{}
		if raw.Usage != nil {
			usage.InputTokens = raw.Usage.InputTokens
			usage.OutputTokens = raw.Usage.OutputTokens
			usage.CacheWriteTokens = raw.Usage.CacheCreationInputTokens
			usage.CacheReadTokens = raw.Usage.CacheReadInputTokens
		}
		usage.Cost = t.prices.Cost(t.model, usage)
		return []Event{{Type: EventUsage, Text: raw.Result, Model: t.model, Usage: &usage}}

	case "error":
		msg := raw.Error
		if msg == "" && len(raw.Message) > 0 {
			var s string
			if err := json.Unmarshal(raw.Message, &s); err == nil {
				msg = s
			}
		}
		return []Event{{Type: EventError, Err: msg, Model: t.model}}

	default:
		// Unrecognized event types are ignored for forward compatibility.
		return nil
	}
}

// Run consumes the reader line by line and sends normalized events to out.
// It returns when the reader is exhausted. The caller owns the channel.
func (t *Translator) Run(r io.Reader, out chan<- Event) {
	scanner := bufio.NewScanner(r)
	// Consolidated assistant messages can be large.
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		for _, event := range t.TranslateLine(scanner.Bytes()) {
			out <- event
		}
	}
}
