package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget selected boards, column configurations and cached lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
