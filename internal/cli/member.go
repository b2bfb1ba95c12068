package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage task assignees",
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members of the current board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		members, err := s.provider.ListMembers(cmd.Context(), s.boardID)
		if err != nil {
			return fmt.Errorf("failed to get members: %w", err)
		}
		if len(members) == 0 {
			fmt.Println("No members found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tNAME\tID")
		for _, m := range members {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Username, m.DisplayName, m.ID)
		}
		w.Flush()
		fmt.Printf("\nTotal: %d members\n", len(members))
		return nil
	},
}

var memberAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <member>",
	Short: "Assign a member to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		m, err := s.resolveMember(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if err := s.provider.AddMember(cmd.Context(), taskID, m.ID); err != nil {
			return fmt.Errorf("failed to assign member: %w", err)
		}
		fmt.Printf("✓ Assigned %s to %s\n", m.Username, taskID)
		return nil
	},
}

var memberUnassignCmd = &cobra.Command{
	Use:   "unassign <task-id> <member>",
	Short: "Remove a member from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, taskID, err := openTaskSession(args[0])
		if err != nil {
			return err
		}
		m, err := s.resolveMember(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if err := s.provider.RemoveMember(cmd.Context(), taskID, m.ID); err != nil {
			return fmt.Errorf("failed to unassign member: %w", err)
		}
		fmt.Printf("✓ Unassigned %s from %s\n", m.Username, taskID)
		return nil
	},
}

func init() {
	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberAssignCmd)
	memberCmd.AddCommand(memberUnassignCmd)
}
