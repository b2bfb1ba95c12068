package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage task labels",
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels on the current board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		labels, err := s.provider.ListLabels(cmd.Context(), s.boardID)
		if err != nil {
			return fmt.Errorf("failed to get labels: %w", err)
		}
		if len(labels) == 0 {
			fmt.Println("No labels found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOLOR\tID")
		for _, l := range labels {
			name := l.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, l.Color, l.ID)
		}
		w.Flush()
		return nil
	},
}

var labelAddCmd = &cobra.Command{
	Use:   "add <task-id> <label>",
	Short: "Add a label to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		l, err := s.resolveLabel(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if err := s.provider.AddLabel(cmd.Context(), taskID, l.ID); err != nil {
			return fmt.Errorf("failed to add label: %w", err)
		}
		fmt.Printf("✓ Added label %s to %s\n", l.Name, taskID)
		return nil
	},
}

var labelRemoveCmd = &cobra.Command{
	Use:   "remove <task-id> <label>",
	Short: "Remove a label from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		l, err := s.resolveLabel(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if err := s.provider.RemoveLabel(cmd.Context(), taskID, l.ID); err != nil {
			return fmt.Errorf("failed to remove label: %w", err)
		}
		fmt.Printf("✓ Removed label %s from %s\n", l.Name, taskID)
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelListCmd)
	labelCmd.AddCommand(labelAddCmd)
	labelCmd.AddCommand(labelRemoveCmd)
}
