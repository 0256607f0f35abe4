package cmd

import (
	"fmt"

	"github.com/ethbind/ethbind/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("ethbind %s (commit %s)\n", version.GetVersion(), version.GetCommit())
		return nil
	},
}
