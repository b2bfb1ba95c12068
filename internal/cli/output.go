package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tkc/boardctl/internal/domain"
)

func printTaskTable(out io.Writer, tasks []domain.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTATUS\tCOLUMN\tTITLE\tID")
	fmt.Fprintln(w, "-\t------\t------\t-----\t--")

	for _, t := range tasks {
		status := statusIcon(t.Status) + " " + string(t.Status)
		num := "-"
		if t.Number > 0 {
			num = fmt.Sprintf("%d", t.Number)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", num, status, truncate(t.ColumnName, 20), truncate(t.Title, 50), t.ID)
	}
	w.Flush()
}

func printTaskDetail(out io.Writer, t *domain.Task) {
	fmt.Fprintf(out, "Task: %s\n", t.Title)
	fmt.Fprintf(out, "ID:     %s\n", t.ID)
	fmt.Fprintf(out, "Status: %s %s\n", statusIcon(t.Status), t.Status)
	fmt.Fprintf(out, "Column: %s\n", t.ColumnName)
	if t.Archived {
		fmt.Fprintln(out, "Archived: yes")
	}
	fmt.Fprintln(out)

	if t.Description != nil {
		fmt.Fprintln(out, "Description:")
		for _, line := range strings.Split(*t.Description, "\n") {
			fmt.Fprintln(out, "  "+line)
		}
		fmt.Fprintln(out)
	}

	if t.DueDate != nil {
		due := t.DueDate.Format("2006-01-02 15:04")
		if t.DueComplete {
			due += " (complete)"
		}
		fmt.Fprintf(out, "Due:       %s\n", due)
	}
	if len(t.LabelIDs) > 0 {
		fmt.Fprintf(out, "Labels:    %s\n", strings.Join(t.LabelIDs, ", "))
	}
	if len(t.AssigneeIDs) > 0 {
		fmt.Fprintf(out, "Assignees: %s\n", strings.Join(t.AssigneeIDs, ", "))
	}
	if t.CommentCount != nil {
		fmt.Fprintf(out, "Comments:  %d\n", *t.CommentCount)
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Created:   %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "Updated:   %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if t.URL != "" {
		fmt.Fprintf(out, "\nURL: %s\n", t.URL)
	}
}

func statusIcon(s domain.Status) string {
	switch s {
	case domain.StatusOpen:
		return "○"
	case domain.StatusInProgress:
		return "◐"
	case domain.StatusDone:
		return "●"
	case domain.StatusArchived:
		return "▪"
	default:
		return "?"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// maskToken はトークンの先頭と末尾4文字以外を伏せる
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
