package models

// SubTask is one independently decomposed unit of an original request.
type SubTask struct {
	// ID is locally unique within a decomposition.
	ID string `json:"id"`
	// Prompt is the sub-task's own generation prompt.
	Prompt string `json:"prompt"`
	// Complexity is the classified complexity of the sub-task prompt.
	Complexity TaskComplexity `json:"complexity"`
	// DependsOn lists sibling sub-task IDs that must complete first.
	// Empty means the sub-task is independent.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Independent returns true if the sub-task has no dependencies.
func (s SubTask) Independent() bool {
	return len(s.DependsOn) == 0
}
