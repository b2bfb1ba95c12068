package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/github"
	"github.com/tkc/boardctl/internal/provider"
)

var (
	boardListOrg string
	boardListAll bool
	columnsFile  string
	columnsReset bool
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards (Trello boards, GitHub repositories)",
}

var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards you can access",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, t, err := openProvider()
		if err != nil {
			return err
		}

		var boards []domain.Board
		org := boardListOrg
		if org == "" && t == provider.TypeGitHub {
			org = cfg.GitHub.Organization
		}
		if gh, ok := p.(*github.Provider); ok && org != "" {
			boards, err = gh.ListOrgBoards(cmd.Context(), org)
		} else {
			boards, err = p.ListBoards(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list boards: %w", err)
		}

		selected, _ := store.SelectedBoard(t)
		count := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, " \tNAME\tID")
		for _, b := range boards {
			if b.Closed && !boardListAll {
				continue
			}
			marker := " "
			if b.ID == selected {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", marker, truncate(b.Name, 50), b.ID)
			count++
		}
		w.Flush()

		fmt.Println()
		fmt.Printf("Total: %d boards\n", count)
		if selected == "" {
			fmt.Println()
			fmt.Println("To select a board, run:")
			fmt.Printf("  boardctl board use <board-id> --provider %s\n", t)
		}
		return nil
	},
}

var boardUseCmd = &cobra.Command{
	Use:   "use <board-id>",
	Short: "Select the board to work with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, t, err := openProvider()
		if err != nil {
			return err
		}

		// ボードが存在するか確認
		board, err := p.GetBoard(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to find board: %w", err)
		}

		store.SelectBoard(t, *board)
		if err := store.Save(); err != nil {
			return fmt.Errorf("failed to save cache: %w", err)
		}

		fmt.Printf("✓ Selected board: %s (%s)\n", board.Name, board.ID)
		if board.URL != "" {
			fmt.Printf("  URL: %s\n", board.URL)
		}
		if t == provider.TypeGitHub && len(store.ColumnConfigs(t, board.ID)) == 0 {
			fmt.Println()
			fmt.Println("No column configuration yet; issues are shown as Open / Closed.")
			fmt.Println("To map status labels to columns, run:")
			fmt.Println("  boardctl board columns set --file columns.yaml")
		}
		fmt.Println()
		fmt.Println("Next step: boardctl task list")
		return nil
	},
}

var boardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		board, err := s.provider.GetBoard(cmd.Context(), s.boardID)
		if err != nil {
			return fmt.Errorf("failed to get board: %w", err)
		}
		cols, err := s.provider.GetBoardColumns(cmd.Context(), s.boardID)
		if err != nil {
			return fmt.Errorf("failed to get columns: %w", err)
		}

		fmt.Println("Current Board:")
		fmt.Printf("  Provider: %s\n", s.typ)
		fmt.Printf("  Name:     %s\n", board.Name)
		fmt.Printf("  ID:       %s\n", board.ID)
		if board.Description != nil {
			fmt.Printf("  About:    %s\n", truncate(*board.Description, 70))
		}
		if board.URL != "" {
			fmt.Printf("  URL:      %s\n", board.URL)
		}
		fmt.Printf("  Columns:  %d\n", len(cols))
		return nil
	},
}

var boardColumnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the columns of the current board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		cols, err := s.provider.GetBoardColumns(cmd.Context(), s.boardID)
		if err != nil {
			return fmt.Errorf("failed to get columns: %w", err)
		}

		var configs []domain.ColumnConfig
		if cc, ok := s.provider.(provider.ColumnConfigurable); ok {
			configs = cc.ColumnConfigs()
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if configs != nil {
			fmt.Fprintln(w, "#\tNAME\tID\tLABEL\tSTATE")
			for i, c := range configs {
				state := "open"
				if c.IsClosedState {
					state = "closed"
				}
				label := c.LabelName
				if label == "" {
					label = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, c.Name, c.ID, label, state)
			}
		} else {
			fmt.Fprintln(w, "#\tNAME\tID")
			for _, c := range cols {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.Position+1, c.Name, c.ID)
			}
		}
		w.Flush()
		return nil
	},
}

// columnsFileContent は board columns set で読むYAMLファイル
type columnsFileContent struct {
	Columns []domain.ColumnConfig `yaml:"columns"`
}

func readColumnsFile(path string) ([]domain.ColumnConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var list []domain.ColumnConfig
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var content columnsFileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return content.Columns, nil
}

var boardColumnsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Configure GitHub columns from a YAML file",
	Long: `Configure how GitHub issues are grouped into columns.

Each column has an id, a name, and either a status label or the closed state.
At most one column may be the closed state, and a column with neither a label
nor the closed state collects open issues without a status label.

Example columns.yaml:

  columns:
    - id: backlog
      name: Backlog
    - id: doing
      name: In Progress
      label_name: "status:doing"
    - id: done
      name: Done
      is_closed_state: true`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		cc, ok := s.provider.(provider.ColumnConfigurable)
		if !ok {
			return &domain.UnsupportedError{Provider: string(s.typ), Operation: "column configuration", Reason: "columns come from the board itself"}
		}

		var configs []domain.ColumnConfig
		if !columnsReset {
			if columnsFile == "" {
				return fmt.Errorf("--file or --reset is required")
			}
			if configs, err = readColumnsFile(columnsFile); err != nil {
				return err
			}
		}
		if err := cc.SetColumnConfigs(configs); err != nil {
			return fmt.Errorf("invalid column configuration: %w", err)
		}
		if err := store.SetColumnConfigs(s.typ, s.boardID, configs); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return fmt.Errorf("failed to save cache: %w", err)
		}

		if columnsReset {
			fmt.Printf("✓ Column configuration reset for %s\n", s.boardID)
			return nil
		}
		fmt.Printf("✓ %d columns configured for %s\n", len(configs), s.boardID)
		return nil
	},
}

func init() {
	boardListCmd.Flags().StringVar(&boardListOrg, "org", "", "GitHub organization to list repositories from")
	boardListCmd.Flags().BoolVarP(&boardListAll, "all", "a", false, "include closed boards and archived repositories")
	boardColumnsSetCmd.Flags().StringVarP(&columnsFile, "file", "f", "", "YAML file with the column configuration")
	boardColumnsSetCmd.Flags().BoolVar(&columnsReset, "reset", false, "remove the column configuration")

	boardColumnsCmd.AddCommand(boardColumnsSetCmd)
	boardCmd.AddCommand(boardListCmd)
	boardCmd.AddCommand(boardUseCmd)
	boardCmd.AddCommand(boardShowCmd)
	boardCmd.AddCommand(boardColumnsCmd)
}
