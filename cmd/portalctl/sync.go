package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the formation directory from WordPress",
	Long: `Synchronize the formation directory from the WordPress site.

The terms job refreshes the cached province, position and formation state
terms. The members job rebuilds the directory from the member posts using the
formation settings. The all job runs both.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'sync' requires a subcommand (terms, members, all, check)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.PersistentFlags().Bool("dry-run", false, "compute the report without writing to the database")
	syncCmd.PersistentFlags().Bool("prune", false, "remove directory rows no longer matched")
}
