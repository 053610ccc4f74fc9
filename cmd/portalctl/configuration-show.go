package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmformation/formation-portal/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show portal configuration attributes and their sources",
	Long: `Show portal configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources, for example the environment variables and config
file. These may not reflect the values used by a running server. Secrets
are redacted.

Config file location: /etc/formation-portal/portal.yml (or PORTAL_CONFIG_PATH)

Example:
  portalctl configuration show
  portalctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		if err := showConfiguration(output); err != nil {
			fail("Failed to show configuration: %v", err)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(output string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch output {
	case "json":
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Println(jsonOutput)
	case "text":
		fmt.Print(cfg.FormatText())
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	return nil
}
