package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkc/boardctl/internal/domain"
)

var (
	taskColumnFilter   string
	taskStatusFilter   string
	taskAssigneeFilter string
	taskLabelFilter    string
	taskArchived       bool
	taskAll            bool
	taskLimit          int

	taskColumn      string
	taskDescription string
	taskDue         string
	taskLabels      []string
	taskAssignees   []string

	taskTitle       string
	taskClearDue    bool
	taskDueComplete bool

	taskYes bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks on the current board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		filter := &domain.TaskFilter{Limit: taskLimit}
		if !taskAll {
			archived := taskArchived
			filter.Archived = &archived
		}
		if taskStatusFilter != "" {
			status := domain.Status(taskStatusFilter)
			if !status.Valid() {
				return &domain.ValidationError{Field: "status", Message: "must be one of open, in_progress, done, archived"}
			}
			filter.Status = &status
		}
		if taskColumnFilter != "" {
			col, err := s.resolveColumn(ctx, taskColumnFilter)
			if err != nil {
				return err
			}
			filter.ColumnID = col.ID
		}
		if taskAssigneeFilter != "" {
			m, err := s.resolveMember(ctx, taskAssigneeFilter)
			if err != nil {
				return err
			}
			filter.AssigneeID = m.ID
		}
		if taskLabelFilter != "" {
			l, err := s.resolveLabel(ctx, taskLabelFilter)
			if err != nil {
				return err
			}
			filter.LabelID = l.ID
		}

		tasks, err := s.provider.ListTasks(ctx, s.boardID, filter)
		if err != nil {
			return fmt.Errorf("failed to get tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return nil
		}

		printTaskTable(os.Stdout, tasks)
		fmt.Println()
		fmt.Printf("Total: %d tasks\n", len(tasks))
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		task, err := s.provider.GetTask(cmd.Context(), taskID)
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		printTaskDetail(os.Stdout, task)
		return nil
	},
}

// parseDue は "2006-01-02" またはRFC3339の日時を読む
func parseDue(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "due", Message: fmt.Sprintf("invalid date %q; use YYYY-MM-DD or RFC3339", s)}
	}
	return t, nil
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		params := domain.CreateTaskParams{Title: strings.Join(args, " ")}
		if err := params.Validate(); err != nil {
			return err
		}
		if cmd.Flags().Changed("desc") {
			params.Description = &taskDescription
		}
		if taskDue != "" {
			due, err := parseDue(taskDue)
			if err != nil {
				return err
			}
			params.DueDate = &due
		}
		for _, ref := range taskLabels {
			l, err := s.resolveLabel(ctx, ref)
			if err != nil {
				return err
			}
			params.LabelIDs = append(params.LabelIDs, l.ID)
		}
		for _, ref := range taskAssignees {
			m, err := s.resolveMember(ctx, ref)
			if err != nil {
				return err
			}
			params.AssigneeIDs = append(params.AssigneeIDs, m.ID)
		}

		var column domain.Column
		if taskColumn != "" {
			column, err = s.resolveColumn(ctx, taskColumn)
		} else {
			column, err = firstOpenColumn(ctx, s)
		}
		if err != nil {
			return err
		}

		task, err := s.provider.CreateTask(ctx, s.boardID, column.ID, params)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		fmt.Printf("✓ Created task in %s: %s\n", task.ColumnName, task.Title)
		fmt.Printf("  ID: %s\n", task.ID)
		if task.URL != "" {
			fmt.Printf("  URL: %s\n", task.URL)
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task's title, description or due date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}

		var params domain.UpdateTaskParams
		flags := cmd.Flags()
		if flags.Changed("title") {
			params.Title = &taskTitle
		}
		if flags.Changed("desc") {
			params.Description = &taskDescription
		}
		if taskDue != "" {
			due, err := parseDue(taskDue)
			if err != nil {
				return err
			}
			params.DueDate = &due
		}
		params.ClearDueDate = taskClearDue
		if flags.Changed("due-complete") {
			params.DueComplete = &taskDueComplete
		}
		if params.IsEmpty() {
			return fmt.Errorf("nothing to update; use --title, --desc, --due, --clear-due or --due-complete")
		}

		task, err := s.provider.UpdateTask(cmd.Context(), taskID, params)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		fmt.Printf("✓ Updated: %s\n", task.Title)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <task-id> <column>",
	Short: "Move a task to another column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		col, err := s.resolveColumn(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		task, err := s.provider.MoveTask(cmd.Context(), taskID, col.ID)
		if err != nil {
			return fmt.Errorf("failed to move task: %w", err)
		}
		fmt.Printf("✓ Moved to %s: %s %s\n", task.ColumnName, statusIcon(task.Status), task.Title)
		return nil
	},
}

var taskArchiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Archive a task (GitHub: close the issue)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		task, err := s.provider.ArchiveTask(cmd.Context(), taskID)
		if err != nil {
			return fmt.Errorf("failed to archive task: %w", err)
		}
		fmt.Printf("✓ Archived: %s\n", task.Title)
		return nil
	},
}

var taskUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <task-id>",
	Short: "Restore an archived task (GitHub: reopen the issue)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		task, err := s.provider.UnarchiveTask(cmd.Context(), taskID)
		if err != nil {
			return fmt.Errorf("failed to unarchive task: %w", err)
		}
		fmt.Printf("✓ Restored to %s: %s\n", task.ColumnName, task.Title)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task permanently (Trello only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		if !taskYes {
			fmt.Printf("Delete %s permanently? [y/N]: ", taskID)
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Println("Cancelled")
				return nil
			}
		}
		if err := s.provider.DeleteTask(cmd.Context(), taskID); err != nil {
			if domain.IsUnsupported(err) {
				return fmt.Errorf("%w\nUse: boardctl task archive %s", err, args[0])
			}
			return fmt.Errorf("failed to delete task: %w", err)
		}
		fmt.Printf("✓ Deleted %s\n", taskID)
		return nil
	},
}

var taskCommentCmd = &cobra.Command{
	Use:   "comment <task-id> <text>",
	Short: "Add a comment to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		c, err := s.provider.AddComment(cmd.Context(), taskID, strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to add comment: %w", err)
		}
		fmt.Printf("✓ Comment added (id: %s)\n", c.ID)
		return nil
	},
}

var taskCommentsCmd = &cobra.Command{
	Use:   "comments <task-id>",
	Short: "List comments on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		comments, err := s.provider.ListComments(cmd.Context(), taskID)
		if err != nil {
			return fmt.Errorf("failed to get comments: %w", err)
		}
		if len(comments) == 0 {
			fmt.Println("No comments")
			return nil
		}
		for _, c := range comments {
			fmt.Printf("%s  %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author.DisplayName)
			for _, line := range strings.Split(c.Text, "\n") {
				fmt.Println("  " + line)
			}
			fmt.Println()
		}
		fmt.Printf("Total: %d comments\n", len(comments))
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringVarP(&taskColumnFilter, "column", "c", "", "filter by column (id or name)")
	taskListCmd.Flags().StringVarP(&taskStatusFilter, "status", "s", "", "filter by status (open, in_progress, done, archived)")
	taskListCmd.Flags().StringVar(&taskAssigneeFilter, "assignee", "", "filter by assignee (id or username)")
	taskListCmd.Flags().StringVarP(&taskLabelFilter, "label", "l", "", "filter by label (id or name)")
	taskListCmd.Flags().BoolVar(&taskArchived, "archived", false, "show only archived tasks")
	taskListCmd.Flags().BoolVarP(&taskAll, "all", "a", false, "show archived and active tasks")
	taskListCmd.Flags().IntVarP(&taskLimit, "limit", "n", 0, "maximum number of tasks to show")

	taskCreateCmd.Flags().StringVarP(&taskColumn, "column", "c", "", "column (id or name); defaults to the first open column")
	taskCreateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "description")
	taskCreateCmd.Flags().StringVar(&taskDue, "due", "", "due date (YYYY-MM-DD or RFC3339, Trello only)")
	taskCreateCmd.Flags().StringSliceVarP(&taskLabels, "label", "l", nil, "label (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskAssignees, "assignee", nil, "assignee (repeatable)")

	taskUpdateCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "new title")
	taskUpdateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "new description")
	taskUpdateCmd.Flags().StringVar(&taskDue, "due", "", "due date (YYYY-MM-DD or RFC3339, Trello only)")
	taskUpdateCmd.Flags().BoolVar(&taskClearDue, "clear-due", false, "remove the due date (Trello only)")
	taskUpdateCmd.Flags().BoolVar(&taskDueComplete, "due-complete", false, "mark the due date complete (Trello only)")

	taskDeleteCmd.Flags().BoolVarP(&taskYes, "yes", "y", false, "skip confirmation")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskArchiveCmd)
	taskCmd.AddCommand(taskUnarchiveCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskCommentCmd)
	taskCmd.AddCommand(taskCommentsCmd)
}
