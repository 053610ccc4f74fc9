package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/middleware"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/storage"
)

// CreateWorkshopRequest is the body of POST /workshops
type CreateWorkshopRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Published   bool       `json:"published"`
}

// UpdateWorkshopRequest is the body of PATCH /workshops/{id}.
// An explicit "ends_at": null clears the end time.
type UpdateWorkshopRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Location    *string         `json:"location,omitempty"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	EndsAt      json.RawMessage `json:"ends_at,omitempty"`
	Published   *bool           `json:"published,omitempty"`
}

// WorkshopResponse is a workshop with its rendered description and attached files
type WorkshopResponse struct {
	model.Workshop
	DescriptionHTML string               `json:"description_html"`
	Files           []model.WorkshopFile `json:"files"`
}

// RegisterWorkshopsEndpoints registers workshops and their attached files
func RegisterWorkshopsEndpoints(s *server.Server) {
	requireEditor := middleware.RequireRole(model.RoleEditor)

	workshopsRouter := s.Router.PathPrefix("/workshops").Subrouter()
	workshopsRouter.Use(s.JWTMiddleware.Middleware)

	// GET /workshops - Published workshops; drafts too for editors
	workshopsRouter.HandleFunc("", handleListWorkshops(s.WorkshopsStore, s.Logger)).Methods("GET")

	// POST /workshops - Create a workshop (editor)
	workshopsRouter.Handle("", requireEditor(handleCreateWorkshop(s.WorkshopsStore, s.Logger))).Methods("POST")

	// GET|PATCH|DELETE /workshops/{id}
	workshopsRouter.HandleFunc("/{id}", handleGetWorkshop(s.WorkshopsStore, s.Logger)).Methods("GET")
	workshopsRouter.Handle("/{id}", requireEditor(handleUpdateWorkshop(s.WorkshopsStore, s.Logger))).Methods("PATCH")
	workshopsRouter.Handle("/{id}", requireEditor(handleDeleteWorkshop(s))).Methods("DELETE")

	// GET|POST /workshops/{id}/files
	workshopsRouter.HandleFunc("/{id}/files", handleListWorkshopFiles(s.WorkshopsStore, s.Logger)).Methods("GET")
	workshopsRouter.Handle("/{id}/files", requireEditor(handleAddWorkshopFile(s))).Methods("POST")

	// DELETE /workshops/{id}/files/{fileID} (editor)
	workshopsRouter.Handle("/{id}/files/{fileID}", requireEditor(handleDeleteWorkshopFile(s))).Methods("DELETE")

	// GET /workshops/{id}/files/{fileID}/url - Signed download link
	workshopsRouter.HandleFunc("/{id}/files/{fileID}/url", handleWorkshopFileURL(s)).Methods("GET")
}

// readableWorkshop loads a workshop and hides drafts from non-editors
func readableWorkshop(w http.ResponseWriter, r *http.Request, workshops store.WorkshopsStore, logger *zap.Logger) *model.Workshop {
	workshop, err := workshops.Get(mux.Vars(r)["id"])
	if err == nil && !workshop.Published && !currentIdentity(r).Can(model.RoleEditor) {
		err = store.ErrNotFound
	}
	if err != nil {
		respondWithStoreError(w, logger, err)
		return nil
	}
	return workshop
}

func handleListWorkshops(workshops store.WorkshopsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := workshops.List(currentIdentity(r).Can(model.RoleEditor))
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if list == nil {
			list = []model.Workshop{}
		}
		respondWithJSON(w, http.StatusOK, list)
	}
}

func handleCreateWorkshop(workshops store.WorkshopsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var req CreateWorkshopRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" || req.StartsAt.IsZero() {
			respondWithError(w, http.StatusUnprocessableEntity, "title and starts_at are required")
			return
		}

		workshop := &model.Workshop{
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Location:    strings.TrimSpace(req.Location),
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
			Published:   req.Published,
			CreatedBy:   &id.ProfileID,
		}

		err := workshops.Create(workshop)
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   workshop.ID,
			Operation:    "create",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, WorkshopResponse{
			Workshop:        *workshop,
			DescriptionHTML: renderMarkdown(workshop.Description),
			Files:           []model.WorkshopFile{},
		})
	}
}

func handleGetWorkshop(workshops store.WorkshopsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshop := readableWorkshop(w, r, workshops, logger)
		if workshop == nil {
			return
		}

		files, err := workshops.ListFiles(workshop.ID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if files == nil {
			files = []model.WorkshopFile{}
		}

		respondWithJSON(w, http.StatusOK, WorkshopResponse{
			Workshop:        *workshop,
			DescriptionHTML: renderMarkdown(workshop.Description),
			Files:           files,
		})
	}
}

func (req *UpdateWorkshopRequest) toUpdate() (store.WorkshopUpdate, error) {
	update := store.WorkshopUpdate{
		Title:       trimmed(req.Title),
		Description: req.Description,
		Location:    trimmed(req.Location),
		StartsAt:    req.StartsAt,
		Published:   req.Published,
	}
	if len(req.EndsAt) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.EndsAt), []byte("null")) {
			update.ClearEndsAt = true
		} else {
			var endsAt time.Time
			if err := json.Unmarshal(req.EndsAt, &endsAt); err != nil {
				return update, fmt.Errorf("invalid ends_at: %w", err)
			}
			update.EndsAt = &endsAt
		}
	}
	return update, nil
}

func handleUpdateWorkshop(workshops store.WorkshopsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		workshopID := mux.Vars(r)["id"]

		var req UpdateWorkshopRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		update, err := req.toUpdate()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		workshop, err := workshops.Update(workshopID, update)
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   workshopID,
			Operation:    "update",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}

		files, err := workshops.ListFiles(workshop.ID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if files == nil {
			files = []model.WorkshopFile{}
		}
		respondWithJSON(w, http.StatusOK, WorkshopResponse{
			Workshop:        *workshop,
			DescriptionHTML: renderMarkdown(workshop.Description),
			Files:           files,
		})
	}
}

func handleDeleteWorkshop(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		workshopID := mux.Vars(r)["id"]

		files, err := s.WorkshopsStore.Delete(workshopID)
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   workshopID,
			Operation:    "delete",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, s.Logger, err)
			return
		}

		for _, f := range files {
			if err := s.WorkshopFiles.Delete(f.ObjectKey); err != nil {
				s.Logger.Warn("failed to remove workshop file object",
					zap.String("workshop", workshopID), zap.String("key", f.ObjectKey), zap.Error(err))
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListWorkshopFiles(workshops store.WorkshopsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshop := readableWorkshop(w, r, workshops, logger)
		if workshop == nil {
			return
		}
		files, err := workshops.ListFiles(workshop.ID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if files == nil {
			files = []model.WorkshopFile{}
		}
		respondWithJSON(w, http.StatusOK, files)
	}
}

func handleAddWorkshopFile(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		workshop := readableWorkshop(w, r, s.WorkshopsStore, s.Logger)
		if workshop == nil {
			return
		}

		up := receiveUpload(w, r, s.WorkshopFiles, "workshops/"+workshop.ID, s.Config.MaxUploadBytes)
		if up == nil {
			return
		}

		file := &model.WorkshopFile{
			WorkshopID:  workshop.ID,
			ObjectKey:   up.Key,
			FileName:    up.FileName,
			ContentType: up.ContentType,
			SizeBytes:   up.Size,
			UploadedBy:  &id.ProfileID,
		}
		err := s.WorkshopsStore.AddFile(file)
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   workshop.ID,
			FileID:       file.ID,
			Operation:    "attach",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			_ = s.WorkshopFiles.Delete(up.Key)
			respondWithStoreError(w, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, file)
	}
}

func handleDeleteWorkshopFile(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		vars := mux.Vars(r)

		file, err := s.WorkshopsStore.DeleteFile(vars["id"], vars["fileID"])
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   vars["id"],
			FileID:       vars["fileID"],
			Operation:    "detach",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, s.Logger, err)
			return
		}

		if err := s.WorkshopFiles.Delete(file.ObjectKey); err != nil {
			s.Logger.Warn("failed to remove workshop file object", zap.String("key", file.ObjectKey), zap.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleWorkshopFileURL(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		workshop := readableWorkshop(w, r, s.WorkshopsStore, s.Logger)
		if workshop == nil {
			return
		}
		file, err := s.WorkshopsStore.GetFile(workshop.ID, mux.Vars(r)["fileID"])
		if err != nil {
			respondWithStoreError(w, s.Logger, err)
			return
		}

		signed, err := s.Signer.SignURL(storage.WorkshopFilesBucket, file.ObjectKey, s.Config.SignedURLLifetime())
		audit.Log(audit.WorkshopEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			WorkshopID:   workshop.ID,
			FileID:       file.ID,
			Operation:    "url",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, signed)
	}
}
