package orchestrator

import (
	"strings"

	"github.com/zimalabs/genflow/pkg/models"
)

// defaultPreamble is used when no tool-manifest provider is configured.
const defaultPreamble = `You are a document generation assistant. When asked to produce
spreadsheets, documents, or presentations, write the files into the current
working directory and describe what you created.`

// PreambleProvider supplies the system-prompt preamble text. The tool
// manifest collaborator implements this; a static fallback is used otherwise.
type PreambleProvider interface {
	SystemPreamble() string
}

// StaticPreamble is a fixed-string PreambleProvider.
type StaticPreamble string

// SystemPreamble returns the static text.
func (s StaticPreamble) SystemPreamble() string {
	if s == "" {
		return defaultPreamble
	}
	return string(s)
}

// composePrompt builds the full renderer prompt: system preamble, optional
// file-context block, optional prior-conversation transcript, then the user
// prompt.
func composePrompt(preamble, fileContext string, messages []models.ConversationMessage, userPrompt string) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")

	if fileContext != "" {
		b.WriteString("## Available file context\n")
		b.WriteString(fileContext)
		b.WriteString("\n\n")
	}

	if len(messages) > 0 {
		b.WriteString("## Previous conversation\n")
		for _, msg := range messages {
			role := msg.Role
			if msg.IsSummary {
				role = role + " (summary)"
			}
			b.WriteString(role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Request\n")
	b.WriteString(userPrompt)

	return b.String()
}
