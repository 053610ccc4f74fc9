package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/afero"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/db"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/endpoints"
)

// signingKey is shared by the test context and every server it starts
const signingKey = "integration-signing-key-0123456789abcdef"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	StorageRoot   string
	WordPress     *httptest.Server
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server
	InlineMode    bool
	BinaryPath    string
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set PORTAL_BINARY to the path of the portalctl binary
//   - Inline mode: Set PORTAL_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	inlineMode := os.Getenv("PORTAL_INLINE") == "1"
	binaryPath := os.Getenv("PORTAL_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either PORTAL_BINARY or PORTAL_INLINE=1 is required.\n\nBinary mode:\n  go build -o portalctl ./cmd/portalctl\n  INTEGRATION_TEST=1 PORTAL_BINARY=$(pwd)/portalctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 PORTAL_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("PORTAL_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("portal_test"),
		tcpostgres.WithUsername("portal"),
		tcpostgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://portal:portal@%s:%s/portal_test?sslmode=disable", host, port.Port())

	// The embedded migrations are the ones the server binary runs
	if err := runMigrations(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	gdb, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rawDB, err := gdb.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	storageRoot, err := os.MkdirTemp("", "portal-storage-")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	wp := newFakeWordPress()

	serverPort := "18080"
	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	var serverProcess *exec.Cmd
	var inlineServer *server.Server
	var cancel context.CancelFunc

	cleanup := func() {
		wp.Close()
		_ = os.RemoveAll(storageRoot)
		_ = pgContainer.Terminate(ctx)
	}

	if inlineMode {
		cfg := inlineConfig(serverURL, storageRoot, wp.URL)
		inlineServer, cancel, err = startInlineServer(cfg, gdb, serverPort)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to start inline server: %w", err)
		}
	} else {
		serverProcess, cancel, err = startBinary(binaryPath, serverPort, binaryEnv(connStr, serverURL, storageRoot, wp.URL))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to start server binary: %w", err)
		}
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		cancel()
		if serverProcess != nil && serverProcess.Process != nil {
			_ = serverProcess.Process.Kill()
		}
		cleanup()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return &TestContext{
		DB:            gdb,
		RawDB:         rawDB,
		Container:     pgContainer,
		ServerURL:     serverURL,
		DatabaseURL:   connStr,
		StorageRoot:   storageRoot,
		WordPress:     wp,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		Cancel:        cancel,
		ServerProcess: serverProcess,
		InlineServer:  inlineServer,
		InlineMode:    inlineMode,
		BinaryPath:    binaryPath,
	}, nil
}

// inlineConfig returns the configuration of an in-process server.
// An empty wordpressURL leaves the directory sync disabled.
func inlineConfig(serverURL, storageRoot, wordpressURL string) *config.PortalConfig {
	cfg := endpoints.TestConfig()
	cfg.SigningKey = signingKey
	cfg.StorageRoot = storageRoot
	cfg.PublicBaseURL = serverURL
	cfg.WordPressURL = wordpressURL
	return cfg
}

// binaryEnv returns the environment of a portalctl server process
func binaryEnv(dbURL, serverURL, storageRoot, wordpressURL string) []string {
	return append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"PORTAL_SIGNING_KEY="+signingKey,
		"PORTAL_STORAGE_ROOT="+storageRoot,
		"PORTAL_PUBLIC_BASE_URL="+serverURL,
		"PORTAL_WORDPRESS_URL="+wordpressURL,
		"PORTAL_CONFIG_PATH="+storageRoot,
	)
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(cfg *config.PortalConfig, gdb *gorm.DB, port string) (*server.Server, context.CancelFunc, error) {
	s, err := server.NewServer(cfg, gdb, afero.NewOsFs(), zap.NewNop(), "127.0.0.1", port)
	if err != nil {
		return nil, nil, err
	}
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	go func() {
		_ = s.Serve(listener)
	}()

	cancel := func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = s.Shutdown(ctx)
	}
	return s, cancel, nil
}

// startBinary starts the portalctl server binary
func startBinary(binaryPath, port string, env []string) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}

// waitForServer polls the health endpoint until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.WordPress != nil {
		tc.WordPress.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.StorageRoot != "" {
		_ = os.RemoveAll(tc.StorageRoot)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// runMigrations applies every embedded migration to the database at dbURL
func runMigrations(dbURL string) error {
	m, err := db.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	applied, err := m.Up()
	if err != nil {
		return err
	}
	if applied {
		log.Println("Applied database migrations")
	}
	return nil
}
