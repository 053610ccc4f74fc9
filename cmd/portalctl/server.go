package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/logging"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/endpoints"
)

const shutdownTimeout = 15 * time.Second

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the portal API server",
	Long: `Run the portal API server.

The server requires DATABASE_URL and a signing key (signing_key in portal.yml
or PORTAL_SIGNING_KEY).

By default, database migrations are run on startup. Use --no-migrate to skip.
The log level follows changes to portal.yml and is re-read on SIGHUP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}
		if err := cfg.ValidateServing(); err != nil {
			fail("Invalid configuration: %v", err)
		}

		logger, err := commandLogger(cfg)
		if err != nil {
			fail("Unable to create logger: %v", err)
		}
		defer func() { _ = logger.Sync() }()

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			logger.Info("running database migrations")
			if err := runMigrations(logger); err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}
		}

		database, err := connectDatabase()
		if err != nil {
			logger.Fatal("unable to connect to the database", zap.Error(err))
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s, err := server.NewServer(cfg, database, afero.NewOsFs(), logger, host, port)
		if err != nil {
			logger.Fatal("unable to create server", zap.Error(err))
		}
		endpoints.RegisterAll(s)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go watchConfiguration(ctx, cfg.ConfigFilePath(), logger)
		go reloadOnHangup(ctx, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- s.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Fatal("server stopped", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error("shutdown failed", zap.Error(err))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

// applyReloaded applies the settings that can change without a restart
func applyReloaded(cfg *config.PortalConfig, err error, logger *zap.Logger) {
	if err != nil {
		logger.Warn("configuration reload failed", zap.Error(err))
		return
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("configuration reload failed", zap.Error(err))
		return
	}
	logger.Info("configuration reloaded", zap.String("log_level", cfg.LogLevel))
}

func watchConfiguration(ctx context.Context, path string, logger *zap.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.PortalConfig, err error) {
		applyReloaded(cfg, err, logger)
	})
	if err != nil {
		logger.Debug("not watching configuration file", zap.String("path", path), zap.Error(err))
	}
}

func reloadOnHangup(ctx context.Context, logger *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			err := config.Reload()
			applyReloaded(config.Get(), err, logger)
		}
	}
}
