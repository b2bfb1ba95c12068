package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTaskFilterIsConjunctive(t *testing.T) {
	yes, no := true, false
	inProgress := StatusInProgress
	tasks := []Task{
		{ID: "1", ColumnID: "c1", ColumnName: "Todo", AssigneeIDs: []string{"alice"}, LabelIDs: []string{"bug"}},
		{ID: "2", ColumnID: "c2", ColumnName: "Doing", Status: StatusInProgress, AssigneeIDs: []string{"bob"}},
		{ID: "3", ColumnID: "c2", ColumnName: "Todo", Archived: true, Status: StatusArchived},
		{ID: "4", ColumnID: "c1", ColumnName: "Todo", AssigneeIDs: []string{"alice", "bob"}},
	}

	tests := []struct {
		name   string
		filter *TaskFilter
		want   []string
	}{
		{"nil filter", nil, []string{"1", "2", "3", "4"}},
		{"column id", &TaskFilter{ColumnID: "c2"}, []string{"2", "3"}},
		{"column id and name both must match", &TaskFilter{ColumnID: "c2", ColumnName: "Todo"}, []string{"3"}},
		{"archived true", &TaskFilter{Archived: &yes}, []string{"3"}},
		{"archived false", &TaskFilter{Archived: &no}, []string{"1", "2", "4"}},
		{"status", &TaskFilter{Status: &inProgress}, []string{"2"}},
		{"assignee", &TaskFilter{AssigneeID: "bob"}, []string{"2", "4"}},
		{"assignee and label", &TaskFilter{AssigneeID: "alice", LabelID: "bug"}, []string{"1"}},
		{"limit", &TaskFilter{ColumnID: "c1", Limit: 1}, []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(tasks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(got), len(tt.want))
			}
			for i, task := range got {
				if task.ID != tt.want[i] {
					t.Fatalf("task %d: got %s, want %s", i, task.ID, tt.want[i])
				}
			}
		})
	}
}

func TestArchivedFilterIgnoresDerivedStatus(t *testing.T) {
	yes := true
	f := &TaskFilter{Archived: &yes}
	// closed GitHub issue: status done, archived true
	if !f.Matches(Task{Status: StatusDone, Archived: true}) {
		t.Fatal("expected archived task to match")
	}
	if f.Matches(Task{Status: StatusArchived, Archived: false}) {
		t.Fatal("status must not be consulted for the archived filter")
	}
}

func TestValidateColumnConfigs(t *testing.T) {
	tests := []struct {
		name    string
		configs []ColumnConfig
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []ColumnConfig{
			{ID: "backlog", Name: "Backlog"},
			{ID: "todo", Name: "Todo", LabelName: "status:todo"},
			{ID: "doing", Name: "Doing", LabelName: "status:doing", Status: StatusInProgress},
			{ID: "done", Name: "Done", IsClosedState: true},
		}, false},
		{"two closed", []ColumnConfig{
			{ID: "done", Name: "Done", IsClosedState: true},
			{ID: "wontfix", Name: "Won't fix", IsClosedState: true},
		}, true},
		{"duplicate label", []ColumnConfig{
			{ID: "a", Name: "A", LabelName: "status:x"},
			{ID: "b", Name: "B", LabelName: "status:x"},
		}, true},
		{"blank label", []ColumnConfig{{ID: "a", Name: "A", LabelName: "  "}}, true},
		{"duplicate id", []ColumnConfig{{ID: "a", Name: "A"}, {ID: "a", Name: "B", LabelName: "x"}}, true},
		{"empty id", []ColumnConfig{{Name: "A"}}, true},
		{"unknown status", []ColumnConfig{{ID: "a", Name: "A", Status: "blocked"}}, true},
		{"closed with open status", []ColumnConfig{{ID: "a", Name: "A", IsClosedState: true, Status: StatusOpen}}, true},
		{"closed with done status", []ColumnConfig{{ID: "a", Name: "A", IsClosedState: true, Status: StatusDone}}, false},
		{"open column with done status", []ColumnConfig{
			{ID: "todo", Name: "Todo", LabelName: "status:todo"},
			{ID: "shipped", Name: "Shipped", LabelName: "status:shipped", Status: StatusDone},
			{ID: "done", Name: "Done", IsClosedState: true},
		}, true},
		{"open column with archived status", []ColumnConfig{{ID: "a", Name: "A", LabelName: "status:a", Status: StatusArchived}}, true},
		{"open column with open status", []ColumnConfig{{ID: "a", Name: "A", LabelName: "status:a", Status: StatusOpen}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumnConfigs(tt.configs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestSplitRepoID(t *testing.T) {
	owner, repo, err := SplitRepoID("octo/hello")
	if err != nil || owner != "octo" || repo != "hello" {
		t.Fatalf("got %q %q %v", owner, repo, err)
	}
	for _, bad := range []string{"", "octo", "octo/", "/hello", "a/b/c"} {
		if _, _, err := SplitRepoID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseIssueID(t *testing.T) {
	id := FormatIssueID("octo", "hello", 42)
	owner, repo, n, err := ParseIssueID(id)
	if err != nil {
		t.Fatalf("parse %s: %v", id, err)
	}
	if owner != "octo" || repo != "hello" || n != 42 {
		t.Fatalf("got %s %s %d", owner, repo, n)
	}
	for _, bad := range []string{"42", "octo/hello#", "octo/hello#x", "octo#1", "octo/hello#0"} {
		if _, _, _, err := ParseIssueID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	d := 30 * time.Second
	if !IsRetryable(&NetworkError{IsTimeout: true}) {
		t.Error("network errors are retryable")
	}
	if !IsRetryable(&RateLimitError{RetryAfter: &d}) {
		t.Error("rate limit errors are retryable")
	}
	if IsRetryable(&AuthError{}) || IsRetryable(ErrNotInitialized) || IsRetryable(&APIError{StatusCode: 500}) {
		t.Error("auth, misuse and api errors are not retryable")
	}
}

func TestAPIErrorKeepsDetailsOutOfMessage(t *testing.T) {
	err := &APIError{Provider: "github", StatusCode: 422, Message: "Validation Failed", Details: []byte(`{"secret":"internal"}`)}
	if got := err.Error(); got != "github: API error status 422: Validation Failed" {
		t.Fatalf("unexpected message: %s", got)
	}
	if got := err.DebugString(); got == err.Error() {
		t.Fatal("debug string should include details")
	}
}

func TestUpdateTaskParamsIsEmpty(t *testing.T) {
	if !(UpdateTaskParams{}).IsEmpty() {
		t.Fatal("zero params should be empty")
	}
	title := "x"
	if (UpdateTaskParams{Title: &title}).IsEmpty() {
		t.Fatal("title set")
	}
	if (UpdateTaskParams{ClearDueDate: true}).IsEmpty() {
		t.Fatal("clear due date set")
	}
}
