package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/authenticator"
	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/formationsync"
	"github.com/cmformation/formation-portal/pkg/logging"
	"github.com/cmformation/formation-portal/pkg/mail"
	"github.com/cmformation/formation-portal/pkg/server/middleware"
	"github.com/cmformation/formation-portal/pkg/server/store"
	gormstore "github.com/cmformation/formation-portal/pkg/server/store/gorm"
	"github.com/cmformation/formation-portal/pkg/storage"
	"github.com/cmformation/formation-portal/pkg/token"
	"github.com/cmformation/formation-portal/pkg/wordpress"
)

type Server struct {
	Config *config.PortalConfig
	Router *mux.Router
	DB     *gorm.DB
	Logger *zap.Logger

	// Stores
	ProfilesStore  store.ProfilesStore
	DocumentsStore store.DocumentsStore
	WorkshopsStore store.WorkshopsStore
	FormationStore store.FormationStore
	HealthStore    store.HealthStore

	// Object storage
	Documents     *storage.Bucket
	WorkshopFiles *storage.Bucket
	Signer        *storage.Signer

	Tokens         *token.Issuer
	Authenticators *authenticator.Registry
	JWTMiddleware  *middleware.JWTAuthenticator
	Mailer         mail.Mailer

	// Sync is nil when no WordPress site is configured
	Sync *formationsync.Service

	srv *http.Server
}

// NewServer wires the portal components over db and the object filesystem fs
func NewServer(
	cfg *config.PortalConfig,
	db *gorm.DB,
	fs afero.Fs,
	logger *zap.Logger,
	host string,
	port string,
) (*Server, error) {
	documents, err := storage.NewBucket(fs, cfg.StorageRoot, storage.DocumentsBucket, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	workshopFiles, err := storage.NewBucket(fs, cfg.StorageRoot, storage.WorkshopFilesBucket, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	key := []byte(cfg.SigningKey)
	tokens := token.NewIssuer(key, cfg.AccessTokenLifetime(), cfg.InviteLifetime())

	profiles := gormstore.NewProfilesStore(db)
	health := gormstore.NewHealthStore(db)
	formation := gormstore.NewFormationStore(db)

	registry := authenticator.NewRegistry()
	registry.Register(authn.New(profiles, health))

	var mailer mail.Mailer = mail.NewNoop(logger)
	if cfg.MailEnabled() {
		mailer = mail.NewClient(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
	}

	var sync *formationsync.Service
	if cfg.WordPressEnabled() {
		wp := wordpress.NewClient(wordpress.Config{
			BaseURL:     cfg.WordPressURL,
			User:        cfg.WordPressUser,
			AppPassword: cfg.WordPressAppPassword,
			PerPage:     cfg.WordPressPerPage,
			Logger:      logger,
		})
		sync = formationsync.New(wp, formation, cfg, logger)
	}

	router := mux.NewRouter().UseEncodedPath()

	var handler http.Handler = router
	handler = middleware.Recover(logger)(handler)
	handler = middleware.CORS(cfg.CORSOrigins)(handler)
	handler = handlers.CombinedLoggingHandler(logging.AccessLogWriter(cfg), handler)

	srv := &http.Server{
		Handler:      handler,
		Addr:         net.JoinHostPort(host, port),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		Config:         cfg,
		Router:         router,
		DB:             db,
		Logger:         logger,
		ProfilesStore:  profiles,
		DocumentsStore: gormstore.NewDocumentsStore(db),
		WorkshopsStore: gormstore.NewWorkshopsStore(db),
		FormationStore: formation,
		HealthStore:    health,
		Documents:      documents,
		WorkshopFiles:  workshopFiles,
		Signer:         storage.NewSigner(key, cfg.PublicBaseURL),
		Tokens:         tokens,
		Authenticators: registry,
		JWTMiddleware:  middleware.NewJWTAuthenticator(tokens, profiles, logger),
		Mailer:         mailer,
		Sync:           sync,
		srv:            srv,
	}, nil
}

// Bucket returns the object bucket called name
func (s *Server) Bucket(name string) (*storage.Bucket, bool) {
	switch name {
	case storage.DocumentsBucket:
		return s.Documents, true
	case storage.WorkshopFilesBucket:
		return s.WorkshopFiles, true
	}
	return nil, false
}

// Handler returns the full middleware chain in front of the router
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.Logger.Info("server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Serve accepts connections on l until Shutdown is called
func (s *Server) Serve(l net.Listener) error {
	s.Logger.Info("server listening", zap.String("addr", l.Addr().String()))
	if err := s.srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
