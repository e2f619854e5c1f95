package orchestrator

import (
	"strings"

	"github.com/zimalabs/genflow/pkg/models"
)

// fileBoundaryPrefix marks the start of one uploaded file's section inside
// the file-context block.
const fileBoundaryPrefix = "=== File:"

// executionContextLines is how many content lines per file section survive
// Execution-tier summarization.
const executionContextLines = 20

// truncationMarker is appended to a file section that was cut short.
const truncationMarker = "... [truncated]"

// planningCues open explanatory or question prompts.
var planningCues = []string{
	"what", "how", "why", "explain", "describe", "tell me", "can you explain",
}

// brownfieldCues mark modifications of existing content.
var brownfieldCues = []string{"update", "modify", "change", "edit", "fix"}

// fullContextCues mark deep-analysis requests that need everything.
var fullContextCues = []string{"analyze", "compare", "review all", "comprehensive"}

// SelectContextTier maps a prompt and conversation shape to a
// context-loading tier.
func SelectContextTier(prompt string, messageCount int) models.ContextTier {
	if messageCount == 0 {
		return models.TierMinimal
	}

	lower := strings.ToLower(strings.TrimSpace(prompt))

	for _, cue := range planningCues {
		if strings.HasPrefix(lower, cue) {
			return models.TierPlanning
		}
	}
	for _, cue := range brownfieldCues {
		if strings.Contains(lower, cue) {
			return models.TierBrownfield
		}
	}
	for _, cue := range fullContextCues {
		if strings.Contains(lower, cue) {
			return models.TierFull
		}
	}
	return models.TierExecution
}

// FilterMessages returns the message window for a tier: the most recent N
// messages in their original order. Full takes everything.
func FilterMessages(messages []models.ConversationMessage, tier models.ContextTier) []models.ConversationMessage {
	limit := tier.MessageLimit()
	if limit < 0 || limit >= len(messages) {
		return messages
	}
	if limit == 0 {
		return nil
	}
	return messages[len(messages)-limit:]
}

// SummarizeFileContext reduces the uploaded-file context block according to
// the tier. Minimal and Planning discard it entirely; Execution keeps the
// first lines of each file section; Brownfield and Full pass it through.
func SummarizeFileContext(fileContext string, tier models.ContextTier) string {
	switch tier {
	case models.TierMinimal, models.TierPlanning:
		return ""
	case models.TierBrownfield, models.TierFull:
		return fileContext
	}

	if fileContext == "" {
		return ""
	}

	var out []string
	lines := strings.Split(fileContext, "\n")
	sectionLines := 0

	for _, line := range lines {
		if strings.HasPrefix(line, fileBoundaryPrefix) {
			out = append(out, line)
			sectionLines = 0
			continue
		}
		sectionLines++
		if sectionLines <= executionContextLines {
			out = append(out, line)
		} else if sectionLines == executionContextLines+1 {
			out = append(out, truncationMarker)
		}
	}
	return strings.Join(out, "\n")
}
