// Package orchestrator composes classification, context tiering, caching,
// warm-up, and renderer invocation into end-to-end generation flows.
package orchestrator

import (
	"regexp"
	"strings"

	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/pkg/models"
)

// multiFilePattern matches explicit multi-file requests like
// "create 3 Excel files" or "generate 5 reports".
var multiFilePattern = regexp.MustCompile(
	`(?i)\b(?:create|generate|make)\b[^.]*?\b(\d+)\b[^.]*?\b(?:files|documents|spreadsheets|sheets|reports|presentations|slides)\b`)

// complexKeywords signal heavy or architectural work regardless of length.
var complexKeywords = []string{
	"architecture",
	"enterprise",
	"financial model",
	"comprehensive",
	"migration",
	"end-to-end",
	"multi-sheet",
	"dashboard",
}

// questionCues mark explanatory or validation prompts.
var questionCues = []string{
	"what", "how", "why", "when", "which", "who",
	"list", "summarize", "explain", "describe", "tell me",
	"is there", "can you explain", "does",
}

// creationVerbs disqualify a question-looking prompt from the Simple tier.
var creationVerbs = []string{"create", "generate", "make", "build"}

// documentKeywords keep short prompts out of the Simple tier when they name
// a document format.
var documentKeywords = []string{
	"excel", "spreadsheet", "xlsx", "word", "document", "docx",
	"presentation", "pptx", "powerpoint", "pdf", "report",
}

// continuationCues mark short follow-ups to an existing conversation.
var continuationCues = []string{"also ", "and ", "now ", "next "}

// Classifier maps a prompt and conversation length to a complexity tier and
// a model identifier. Model routing is a static, configuration-backed table.
type Classifier struct {
	routing config.ModelsConfig
}

// NewClassifier creates a Classifier with the given model routing table.
func NewClassifier(routing config.ModelsConfig) *Classifier {
	return &Classifier{routing: routing}
}

// Classify returns the task complexity for a prompt given the number of
// prior conversation messages. Rules are evaluated in precedence order:
// Complex signals first, then Simple, then the Standard default.
func (c *Classifier) Classify(prompt string, messageCount int) models.TaskComplexity {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	// Complex: multi-file requests, heavy keywords, or very long prompts.
	if multiFilePattern.MatchString(prompt) {
		return models.ComplexityComplex
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return models.ComplexityComplex
		}
	}
	if len(prompt) > 1000 {
		return models.ComplexityComplex
	}

	// Simple: questions without creation verbs, short prompts without
	// document keywords, or short continuations of an existing conversation.
	if hasQuestionCue(lower) && !hasCreationVerb(lower) {
		return models.ComplexitySimple
	}
	if len(lower) < 50 && !hasDocumentKeyword(lower) {
		return models.ComplexitySimple
	}
	if messageCount > 0 {
		for _, cue := range continuationCues {
			if strings.HasPrefix(lower, cue) {
				return models.ComplexitySimple
			}
		}
	}

	return models.ComplexityStandard
}

// ModelFor returns the model identifier routed for a complexity tier.
func (c *Classifier) ModelFor(complexity models.TaskComplexity) string {
	switch complexity {
	case models.ComplexitySimple:
		return c.routing.Simple
	case models.ComplexityComplex:
		return c.routing.Complex
	default:
		return c.routing.Standard
	}
}

func hasQuestionCue(lower string) bool {
	for _, cue := range questionCues {
		if strings.HasPrefix(lower, cue) || strings.Contains(lower, " "+cue+" ") {
			return true
		}
	}
	return false
}

func hasCreationVerb(lower string) bool {
	for _, verb := range creationVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

func hasDocumentKeyword(lower string) bool {
	for _, kw := range documentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
