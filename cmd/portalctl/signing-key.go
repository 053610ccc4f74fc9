package main

import (
	"github.com/spf13/cobra"
)

// signingKeyCmd represents the signing-key command
var signingKeyCmd = &cobra.Command{
	Use:   "signing-key",
	Short: "Manage the token signing key",
}

func init() {
	rootCmd.AddCommand(signingKeyCmd)
}
