package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zimalabs/genflow/pkg/models"
)

// maxConjunctionClauses bounds how many " and "-joined clauses are split into
// sub-tasks. More clauses than this runs as a single task.
const maxConjunctionClauses = 5

// CanParallelize reports whether a prompt is eligible for decomposition into
// concurrent sub-tasks: either an explicit "create N files" count, or an
// " and " conjunction next to a creation verb.
func CanParallelize(prompt string) bool {
	if extractFileCount(prompt) > 1 {
		return true
	}
	lower := strings.ToLower(prompt)
	return strings.Contains(lower, " and ") && hasCreationVerb(lower)
}

// Decompose splits a prompt into sub-tasks. An explicit count N yields N
// homogeneous sub-tasks; 2-5 conjunction clauses each become one sub-task;
// anything else is returned as a single sub-task, which callers treat as "no
// decomposition". Atomic prompts survive a second pass unchanged.
func Decompose(prompt string) []models.SubTask {
	if n := extractFileCount(prompt); n > 1 {
		tasks := make([]models.SubTask, 0, n)
		for i := 1; i <= n; i++ {
			tasks = append(tasks, models.SubTask{
				ID:         fmt.Sprintf("sub-%d", i),
				Prompt:     fmt.Sprintf("%s (item %d of %d)", prompt, i, n),
				Complexity: models.ComplexityStandard,
			})
		}
		return tasks
	}

	lower := strings.ToLower(prompt)
	if strings.Contains(lower, " and ") && hasCreationVerb(lower) {
		clauses := splitConjunction(prompt)
		if len(clauses) >= 2 && len(clauses) <= maxConjunctionClauses {
			tasks := make([]models.SubTask, 0, len(clauses))
			for i, clause := range clauses {
				tasks = append(tasks, models.SubTask{
					ID:         fmt.Sprintf("sub-%d", i+1),
					Prompt:     clause,
					Complexity: models.ComplexityStandard,
				})
			}
			return tasks
		}
	}

	return []models.SubTask{{
		ID:         "sub-1",
		Prompt:     prompt,
		Complexity: models.ComplexityStandard,
	}}
}

// extractFileCount returns the N from a "create N files" style prompt, or 0.
// Prompts carrying an "(item i of N)" marker are already sub-tasks and never
// decompose again.
func extractFileCount(prompt string) int {
	if strings.Contains(prompt, "(item ") {
		return 0
	}
	m := multiFilePattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// splitConjunction splits on " and " and ensures every clause opens with a
// creation verb, prefixing "Create " where one is missing. Clauses that end
// up empty are dropped.
func splitConjunction(prompt string) []string {
	parts := strings.Split(prompt, " and ")
	clauses := make([]string, 0, len(parts))
	for _, part := range parts {
		clause := strings.TrimSpace(part)
		if clause == "" {
			continue
		}
		if !startsWithCreationVerb(clause) {
			clause = "Create " + clause
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

func startsWithCreationVerb(clause string) bool {
	lower := strings.ToLower(clause)
	for _, verb := range creationVerbs {
		if strings.HasPrefix(lower, verb+" ") || lower == verb {
			return true
		}
	}
	return false
}
