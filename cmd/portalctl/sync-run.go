package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/formationsync"
	gormstore "github.com/cmformation/formation-portal/pkg/server/store/gorm"
)

// syncActor names the CLI in the audit trail
const syncActor = "portalctl"

func newSyncJobCmd(job, short string) *cobra.Command {
	return &cobra.Command{
		Use:   job,
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			prune, _ := cmd.Flags().GetBool("prune")

			report, err := runSync(job, formationsync.Options{DryRun: dryRun, Prune: prune, Actor: syncActor})
			if err != nil {
				fail("Sync failed: %v", err)
			}

			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(out))
		},
	}
}

func init() {
	syncCmd.AddCommand(newSyncJobCmd(formationsync.JobTerms, "Refresh the cached taxonomy terms"))
	syncCmd.AddCommand(newSyncJobCmd(formationsync.JobMembers, "Rebuild the formation directory"))
	syncCmd.AddCommand(newSyncJobCmd(formationsync.JobAll, "Refresh terms then rebuild the directory"))
}

func runSync(job string, opts formationsync.Options) (*formationsync.Report, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.WordPressEnabled() {
		return nil, fmt.Errorf("wordpress_url is not configured")
	}

	logger, err := commandLogger(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	database, err := connectDatabase()
	if err != nil {
		return nil, err
	}

	service := formationsync.New(newWordPressClient(cfg, logger), gormstore.NewFormationStore(database), cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting sync", zap.String("job", job), zap.Bool("dry_run", opts.DryRun), zap.Bool("prune", opts.Prune))
	return service.Run(ctx, job, opts)
}
