package orchestrator

import (
	"strings"
	"testing"
)

func TestCanParallelize(t *testing.T) {
	cases := []struct {
		prompt string
		want   bool
	}{
		{"Create 3 Excel files comparing quarterly revenue", true},
		{"Create a budget spreadsheet and a forecast document", true},
		{"Create a budget spreadsheet", false},
		{"What is a balance sheet and how is it used?", false},
	}
	for _, tc := range cases {
		if got := CanParallelize(tc.prompt); got != tc.want {
			t.Errorf("CanParallelize(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}

func TestDecomposeExplicitCount(t *testing.T) {
	tasks := Decompose("Create 3 Excel files comparing quarterly revenue")

	if len(tasks) != 3 {
		t.Fatalf("got %d sub-tasks, want 3", len(tasks))
	}
	for i, task := range tasks {
		want := "(item " + string(rune('1'+i)) + " of 3)"
		if !strings.Contains(task.Prompt, want) {
			t.Errorf("sub-task %d prompt %q missing %q", i, task.Prompt, want)
		}
		if !task.Independent() {
			t.Errorf("homogeneous sub-task %d should be independent", i)
		}
	}
}

func TestDecomposeConjunctionClauses(t *testing.T) {
	tasks := Decompose("Create a budget spreadsheet and a forecast document and build a summary report")

	if len(tasks) != 3 {
		t.Fatalf("got %d sub-tasks, want 3", len(tasks))
	}
	if tasks[0].Prompt != "Create a budget spreadsheet" {
		t.Errorf("first clause = %q", tasks[0].Prompt)
	}
	// Second clause lacked a creation verb and must gain one.
	if tasks[1].Prompt != "Create a forecast document" {
		t.Errorf("second clause = %q", tasks[1].Prompt)
	}
	if tasks[2].Prompt != "build a summary report" {
		t.Errorf("third clause = %q", tasks[2].Prompt)
	}
}

func TestDecomposeAtomicPromptSingleTask(t *testing.T) {
	tasks := Decompose("Create a budget spreadsheet")

	if len(tasks) != 1 {
		t.Fatalf("got %d sub-tasks, want 1", len(tasks))
	}
	if tasks[0].Prompt != "Create a budget spreadsheet" {
		t.Errorf("atomic prompt was altered: %q", tasks[0].Prompt)
	}
}

func TestDecomposeIdempotentOnSubTasks(t *testing.T) {
	for _, prompt := range []string{
		"Create 3 Excel files comparing quarterly revenue",
		"Create a budget spreadsheet",
	} {
		first := Decompose(prompt)
		second := Decompose(first[0].Prompt)
		if len(second) != 1 {
			t.Errorf("Decompose(Decompose(%q)[0]) yielded %d sub-tasks, want 1", prompt, len(second))
		}
	}
}
