package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/db"
	"github.com/cmformation/formation-portal/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Formation portal server and administration tool",
	Long: `portalctl runs the formation portal API server and administers its
database, accounts and WordPress directory sync.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is normal outside development
		_ = godotenv.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// fail prints a message to stderr and exits
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads and validates the configuration for a command
func loadConfig() (*config.PortalConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// commandLogger builds the zap logger of a command and routes audit failures to it
func commandLogger(cfg *config.PortalConfig) (*zap.Logger, error) {
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	audit.SetErrorLogger(logger)
	return logger, nil
}

func connectDatabase() (*gorm.DB, error) {
	return db.Connect(db.Config{})
}
