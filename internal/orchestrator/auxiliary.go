package orchestrator

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zimalabs/genflow/internal/renderer"
	"github.com/zimalabs/genflow/pkg/models"
)

// titleMaxLen bounds generated conversation titles.
const titleMaxLen = 50

// summarizeWindow is how many trailing messages feed a summary request.
const summarizeWindow = 20

// GenerateTitle produces a short conversation title for the first user
// message. It always routes to the simple-tier model, and falls back to a
// truncation of the input when the renderer fails.
func (o *Orchestrator) GenerateTitle(ctx context.Context, firstMessage string) string {
	fallback := truncate(strings.TrimSpace(firstMessage), titleMaxLen)
	if fallback == "" {
		return "New conversation"
	}

	prompt := "Generate a concise title (at most 5 words) for a conversation that starts with this message. " +
		"Reply with the title only, no quotes or punctuation around it.\n\n" + firstMessage

	out, err := o.runQuick(ctx, prompt, o.cfg.Timeouts.Title)
	if err != nil {
		log.Printf("[orchestrator] title generation failed, using fallback: %v", err)
		return fallback
	}

	title := cleanTitle(out)
	if title == "" {
		return fallback
	}
	return truncate(title, titleMaxLen)
}

// Summarize condenses a conversation history into a compact summary for use
// as a context-replacing summary message. Only the trailing window of
// messages is sent. On failure it returns a static notice rather than an
// error; summaries are best-effort.
func (o *Orchestrator) Summarize(ctx context.Context, messages []models.ConversationMessage) string {
	if len(messages) == 0 {
		return ""
	}
	window := messages
	if len(window) > summarizeWindow {
		window = window[len(window)-summarizeWindow:]
	}

	var b strings.Builder
	b.WriteString("Summarize the following conversation in at most 150 words. " +
		"Preserve concrete facts, names, numbers, and any decisions made.\n\n")
	for _, msg := range window {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	out, err := o.runQuick(ctx, b.String(), o.cfg.Timeouts.Summarize)
	summary := strings.TrimSpace(out)
	if err != nil || summary == "" {
		if err != nil {
			log.Printf("[orchestrator] summarize failed: %v", err)
		}
		return "Previous conversation covered: " + truncate(window[0].Content, 80)
	}
	return summary
}

// runQuick runs a single-shot renderer invocation on the simple-tier model
// with its own timeout, collecting all content into one string.
func (o *Orchestrator) runQuick(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := o.factory.New(ctx)
	if err := r.Start(prompt, renderer.StartOptions{Model: o.cfg.Models.Simple}); err != nil {
		return "", err
	}

	var out strings.Builder
	for ev := range r.Events() {
		if ev.Type == renderer.EventContent {
			out.WriteString(ev.Text)
		}
	}
	if err := r.Wait(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// cleanTitle strips surrounding quotes and markdown emphasis the renderer
// tends to wrap titles in.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'")
	s = strings.Trim(s, "*_#` ")
	// Multi-line replies: keep the first line only.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// truncate bounds s to max bytes, cutting on a rune boundary so multi-byte
// characters are never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}
