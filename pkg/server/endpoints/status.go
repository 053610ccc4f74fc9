package endpoints

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cmformation/formation-portal/pkg/authenticator"
	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// StatusResponse is the JSON form of the status page
type StatusResponse struct {
	Version   string `json:"version"`
	WordPress bool   `json:"wordpress"`
	Mail      bool   `json:"mail"`
}

// HealthResponse represents the response from /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// AuthenticatorsResponse represents the response from /authenticators
type AuthenticatorsResponse struct {
	Enabled []string          `json:"enabled"`
	Status  map[string]string `json:"status"`
}

// AuthenticatorStatusResponse represents the response from the authenticator status endpoint
type AuthenticatorStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status and health endpoints
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus(s.Config)).Methods("GET")

	// GET /health - Database check for load balancers
	s.Router.HandleFunc("/health", handleHealth(s.HealthStore)).Methods("GET")

	// GET /authenticators - Enabled authenticators and their status
	s.Router.HandleFunc("/authenticators", handleAuthenticators(s.Authenticators)).Methods("GET")
	s.Router.HandleFunc("/authenticators/{authenticator}/status", handleAuthenticatorStatus(s.Authenticators)).Methods("GET")
}

func version() string {
	if v := os.Getenv("PORTAL_VERSION"); v != "" {
		return v
	}
	return "0.1.0"
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="fr">
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <link rel="stylesheet" href="/css/status-page.css">
    <title>Portail de formation</title>
  </head>
  <body>
    <main>
      <h1>Portail de formation</h1>
      <p class="status-text">Le serveur fonctionne.</p>
      <dl>
        <dt>Version</dt>
        <dd>{{.Version}}</dd>
        <dt>Annuaire WordPress</dt>
        <dd>{{if .WordPress}}configuré{{else}}non configuré{{end}}</dd>
        <dt>Envoi de courriels</dt>
        <dd>{{if .Mail}}configuré{{else}}journalisé uniquement{{end}}</dd>
      </dl>
    </main>
  </body>
</html>
`))

func handleStatus(cfg *config.PortalConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := StatusResponse{
			Version:   version(),
			WordPress: cfg.WordPressEnabled(),
			Mail:      cfg.MailEnabled(),
		}

		if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
			respondWithJSON(w, http.StatusOK, status)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = statusPage.Execute(w, status)
	}
}

func handleHealth(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := healthStore.CheckConnectivity(); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:   "error",
				Database: "unreachable",
				Error:    "database connectivity check failed",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
	}
}

func handleAuthenticators(registry *authenticator.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := registry.Status(r.Context())
		response := AuthenticatorsResponse{
			Enabled: registry.Enabled(),
			Status:  map[string]string{},
		}
		for _, name := range response.Enabled {
			response.Status[name] = "ok"
			if failures[name] != nil {
				response.Status[name] = "error"
			}
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleAuthenticatorStatus(registry *authenticator.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["authenticator"]

		auth, ok := registry.Get(name)
		if !ok {
			respondWithJSON(w, http.StatusNotImplemented, AuthenticatorStatusResponse{
				Status: "error",
				Error:  "authenticator is not enabled",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := auth.Status(ctx); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, AuthenticatorStatusResponse{
				Status: "error",
				Error:  err.Error(),
			})
			return
		}
		respondWithJSON(w, http.StatusOK, AuthenticatorStatusResponse{Status: "ok"})
	}
}
