package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/formationsync"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/middleware"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/wordpress"
)

// maxRunsLimit caps GET /formation/sync/runs
const maxRunsLimit = 200

// SettingsRequest is the body of PUT /formation/settings
type SettingsRequest struct {
	IncludedStates    []string `json:"included_states"`
	IncludedProvinces []string `json:"included_provinces"`
	PruneMissing      bool     `json:"prune_missing"`
}

// SyncRequest is the body of POST /formation/sync
type SyncRequest struct {
	Job    string `json:"job"`
	DryRun bool   `json:"dry_run"`
	Prune  bool   `json:"prune"`
}

// RegisterFormationEndpoints registers the formation directory and its sync controls
func RegisterFormationEndpoints(s *server.Server) {
	requireAdmin := middleware.RequireRole(model.RoleAdmin)

	formationRouter := s.Router.PathPrefix("/formation").Subrouter()
	formationRouter.Use(s.JWTMiddleware.Middleware)

	// GET|PUT /formation/settings (PUT admin)
	formationRouter.HandleFunc("/settings", handleGetSettings(s.FormationStore, s.Logger)).Methods("GET")
	formationRouter.Handle("/settings", requireAdmin(handleSaveSettings(s.FormationStore, s.Logger))).Methods("PUT")

	// GET /formation/confreres?province=&state=&position=&q=
	formationRouter.HandleFunc("/confreres", handleListConfreres(s.FormationStore, s.Logger)).Methods("GET")
	formationRouter.HandleFunc("/confreres/{wpID:[0-9]+}", handleGetConfrere(s.FormationStore, s.Logger)).Methods("GET")

	// GET /formation/terms?taxonomy=
	formationRouter.HandleFunc("/terms", handleListTerms(s.FormationStore, s.Logger)).Methods("GET")

	// POST /formation/sync - Run a sync job (admin)
	formationRouter.Handle("/sync", requireAdmin(handleSync(s.Sync, s.Logger))).Methods("POST")

	// GET /formation/sync/runs - Latest sync runs (admin)
	formationRouter.Handle("/sync/runs", requireAdmin(handleListRuns(s.FormationStore, s.Logger))).Methods("GET")
}

func handleGetSettings(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := formation.Settings()
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, settings)
	}
}

// cleanSlugs trims, drops empties and deduplicates slugs, keeping order
func cleanSlugs(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

func handleSaveSettings(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var req SettingsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		settings, err := formation.SaveSettings(store.SettingsUpdate{
			IncludedStates:    cleanSlugs(req.IncludedStates),
			IncludedProvinces: cleanSlugs(req.IncludedProvinces),
			PruneMissing:      req.PruneMissing,
			UpdatedBy:         &id.ProfileID,
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		logger.Info("formation settings updated",
			zap.String("by", id.ProfileID),
			zap.Strings("states", settings.IncludedStates),
			zap.Strings("provinces", settings.IncludedProvinces),
		)
		respondWithJSON(w, http.StatusOK, settings)
	}
}

func handleListConfreres(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		list, err := formation.ListConfreres(store.ConfrereFilter{
			ProvinceSlug: strings.TrimSpace(query.Get("province")),
			State:        strings.TrimSpace(query.Get("state")),
			Position:     strings.TrimSpace(query.Get("position")),
			Query:        strings.TrimSpace(query.Get("q")),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if list == nil {
			list = []model.ConfrereInFormation{}
		}
		respondWithJSON(w, http.StatusOK, list)
	}
}

func handleGetConfrere(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wpID, err := strconv.ParseInt(mux.Vars(r)["wpID"], 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid WordPress id")
			return
		}
		confrere, err := formation.GetConfrere(wpID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, confrere)
	}
}

func handleListTerms(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxonomy := strings.TrimSpace(r.URL.Query().Get("taxonomy"))
		switch taxonomy {
		case "", formationsync.TaxonomyProvince, formationsync.TaxonomyPosition, formationsync.TaxonomyFormationState:
		default:
			respondWithError(w, http.StatusUnprocessableEntity, "unknown taxonomy "+strconv.Quote(taxonomy))
			return
		}

		terms, err := formation.ListTerms(taxonomy)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if terms == nil {
			terms = []model.TaxonomyTerm{}
		}
		respondWithJSON(w, http.StatusOK, terms)
	}
}

func handleSync(sync *formationsync.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sync == nil {
			respondWithError(w, http.StatusServiceUnavailable, "WordPress is not configured")
			return
		}

		req := SyncRequest{Job: formationsync.JobAll}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if req.Job == "" {
			req.Job = formationsync.JobAll
		}

		report, err := sync.Run(r.Context(), req.Job, formationsync.Options{
			DryRun: req.DryRun,
			Prune:  req.Prune,
			Actor:  currentIdentity(r).ProfileID,
		})
		switch {
		case errors.Is(err, formationsync.ErrRunning):
			respondWithError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, formationsync.ErrUnknownJob):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			var apiErr *wordpress.APIError
			if errors.As(err, &apiErr) {
				respondWithError(w, http.StatusBadGateway, err.Error())
				return
			}
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, report)
	}
}

func handleListRuns(formation store.FormationStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxRunsLimit)
		}

		runs, err := formation.ListRuns(limit)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if runs == nil {
			runs = []model.SyncRun{}
		}
		respondWithJSON(w, http.StatusOK, runs)
	}
}
