package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/wordpress"
)

// syncCheckCmd represents the sync check command
var syncCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the WordPress REST API answers",
	Long: `Check that the configured WordPress site answers on its REST API root.

Transient failures are retried until the timeout expires.

Example:
  portalctl sync check --timeout 30s`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, err := loadConfig()
		if err != nil {
			fail("Error: %v", err)
		}
		if !cfg.WordPressEnabled() {
			fail("Error: wordpress_url is not configured")
		}

		logger, err := commandLogger(cfg)
		if err != nil {
			fail("Error: %v", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := newWordPressClient(cfg, logger).Ping(ctx); err != nil {
			fail("WordPress at %s is not reachable: %v", cfg.WordPressURL, err)
		}
		fmt.Printf("WordPress at %s is reachable\n", cfg.WordPressURL)
	},
}

func init() {
	syncCmd.AddCommand(syncCheckCmd)
	syncCheckCmd.Flags().Duration("timeout", 30*time.Second, "give up after this long")
}

func newWordPressClient(cfg *config.PortalConfig, logger *zap.Logger) *wordpress.Client {
	return wordpress.NewClient(wordpress.Config{
		BaseURL:     cfg.WordPressURL,
		User:        cfg.WordPressUser,
		AppPassword: cfg.WordPressAppPassword,
		PerPage:     cfg.WordPressPerPage,
		Logger:      logger,
	})
}
