package integration

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/server"
)

// portCounter is used to allocate unique ports for each test server
var portCounter int32 = 19000

// ServerConfig holds configuration for a test portal server instance
type ServerConfig struct {
	// WordPress enables the directory sync against the suite's fake site
	WordPress bool
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{WordPress: true}
}

// ServerInstance represents a running portal server for a single scenario
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	Config        ServerConfig
	cancel        context.CancelFunc
	serverProcess *exec.Cmd // For binary mode
}

// StartServer starts a portal server over the suite's database and storage.
// This supports both inline and binary modes based on how the test suite was started.
func StartServer(tc *TestContext, cfg ServerConfig) (*ServerInstance, error) {
	port := int(atomic.AddInt32(&portCounter, 1))
	portStr := strconv.Itoa(port)
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	wordpressURL := ""
	if cfg.WordPress {
		wordpressURL = tc.WordPress.URL
	}

	instance := &ServerInstance{
		ServerURL: serverURL,
		Port:      port,
		Config:    cfg,
	}

	if tc.InlineMode {
		// Each instance gets its own pool so stopping it leaves the suite's connection intact
		gdb, err := gorm.Open(postgres.New(postgres.Config{
			DSN:                  tc.DatabaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s, cancel, err := startInlineServer(inlineConfig(serverURL, tc.StorageRoot, wordpressURL), gdb, portStr)
		if err != nil {
			return nil, err
		}
		instance.Server = s
		instance.cancel = func() {
			cancel()
			if raw, err := gdb.DB(); err == nil {
				_ = raw.Close()
			}
		}
	} else {
		// A separate config directory keeps the instance from reading the suite's portal.yml
		env := binaryEnv(tc.DatabaseURL, serverURL, tc.StorageRoot, wordpressURL)
		env = append(env, "PORTAL_CONFIG_PATH="+filepath.Join(tc.StorageRoot, "instance-"+portStr))

		cmd, cancel, err := startBinary(tc.BinaryPath, portStr, env)
		if err != nil {
			return nil, err
		}
		instance.serverProcess = cmd
		instance.cancel = cancel
	}

	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// Stop shuts down the server instance
func (si *ServerInstance) Stop() {
	if si.cancel != nil {
		si.cancel()
	}
	if si.serverProcess != nil && si.serverProcess.Process != nil {
		_ = si.serverProcess.Process.Kill()
		_ = si.serverProcess.Wait()
	}
}
