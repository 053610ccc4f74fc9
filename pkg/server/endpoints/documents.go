package endpoints

import (
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/middleware"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/storage"
)

// UpdateDocumentRequest is the body of PATCH /documents/{id}
type UpdateDocumentRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

// RegisterDocumentsEndpoints registers the document library
func RegisterDocumentsEndpoints(s *server.Server) {
	requireEditor := middleware.RequireRole(model.RoleEditor)

	documentsRouter := s.Router.PathPrefix("/documents").Subrouter()
	documentsRouter.Use(s.JWTMiddleware.Middleware)

	// GET /documents?category=&q= - Documents readable by the caller
	documentsRouter.HandleFunc("", handleListDocuments(s.DocumentsStore, s.Logger)).Methods("GET")

	// GET /documents/categories - Distinct categories readable by the caller
	documentsRouter.HandleFunc("/categories", handleDocumentCategories(s.DocumentsStore, s.Logger)).Methods("GET")

	// POST /documents - Upload a document (editor)
	documentsRouter.Handle("", requireEditor(handleCreateDocument(s))).Methods("POST")

	// GET /documents/{id} - Document metadata
	documentsRouter.HandleFunc("/{id}", handleGetDocument(s.DocumentsStore, s.Logger)).Methods("GET")

	// PATCH /documents/{id} - Update metadata (editor)
	documentsRouter.Handle("/{id}", requireEditor(handleUpdateDocument(s.DocumentsStore, s.Logger))).Methods("PATCH")

	// DELETE /documents/{id} - Remove a document and its object (editor)
	documentsRouter.Handle("/{id}", requireEditor(handleDeleteDocument(s))).Methods("DELETE")

	// GET /documents/{id}/url - Signed download link
	documentsRouter.HandleFunc("/{id}/url", handleDocumentURL(s)).Methods("GET")
}

// readableDocument loads a document and hides it when the caller may not read it
func readableDocument(w http.ResponseWriter, r *http.Request, documents store.DocumentsStore, logger *zap.Logger) *model.Document {
	doc, err := documents.Get(mux.Vars(r)["id"])
	if err == nil && !doc.Visibility.VisibleTo(currentIdentity(r).Role) {
		err = store.ErrNotFound
	}
	if err != nil {
		respondWithStoreError(w, logger, err)
		return nil
	}
	return doc
}

func handleListDocuments(documents store.DocumentsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		list, err := documents.List(store.DocumentFilter{
			Category:  strings.TrimSpace(query.Get("category")),
			Query:     strings.TrimSpace(query.Get("q")),
			VisibleTo: currentIdentity(r).Role,
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if list == nil {
			list = []model.Document{}
		}
		respondWithJSON(w, http.StatusOK, list)
	}
}

func handleDocumentCategories(documents store.DocumentsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := documents.Categories(currentIdentity(r).Role)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if categories == nil {
			categories = []string{}
		}
		respondWithJSON(w, http.StatusOK, categories)
	}
}

func handleCreateDocument(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		up := receiveUpload(w, r, s.Documents, "documents", s.Config.MaxUploadBytes)
		if up == nil {
			return
		}

		visibility := model.VisibilityMembers
		if v := up.Value("visibility"); v != "" {
			visibility = model.Visibility(v)
		}
		title := up.Value("title")
		if title == "" {
			title = strings.TrimSuffix(up.FileName, path.Ext(up.FileName))
		}

		doc := &model.Document{
			Title:       title,
			Description: up.Value("description"),
			Category:    up.Value("category"),
			Visibility:  visibility,
			ObjectKey:   up.Key,
			FileName:    up.FileName,
			ContentType: up.ContentType,
			SizeBytes:   up.Size,
			UploadedBy:  &id.ProfileID,
		}

		err := s.DocumentsStore.Create(doc)
		audit.Log(audit.DocumentEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			DocumentID:   doc.ID,
			Title:        doc.Title,
			Operation:    "create",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			_ = s.Documents.Delete(up.Key)
			respondWithStoreError(w, s.Logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, doc)
	}
}

func handleGetDocument(documents store.DocumentsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := readableDocument(w, r, documents, logger)
		if doc == nil {
			return
		}
		respondWithJSON(w, http.StatusOK, doc)
	}
}

func handleUpdateDocument(documents store.DocumentsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var req UpdateDocumentRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		doc := readableDocument(w, r, documents, logger)
		if doc == nil {
			return
		}

		update := store.DocumentUpdate{
			Title:       trimmed(req.Title),
			Description: trimmed(req.Description),
			Category:    trimmed(req.Category),
		}
		if req.Visibility != nil {
			v := model.Visibility(*req.Visibility)
			update.Visibility = &v
		}

		updated, err := documents.Update(doc.ID, update)
		audit.Log(audit.DocumentEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			DocumentID:   doc.ID,
			Title:        doc.Title,
			Operation:    "update",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteDocument(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		doc := readableDocument(w, r, s.DocumentsStore, s.Logger)
		if doc == nil {
			return
		}

		deleted, err := s.DocumentsStore.Delete(doc.ID)
		audit.Log(audit.DocumentEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			DocumentID:   doc.ID,
			Title:        doc.Title,
			Operation:    "delete",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, s.Logger, err)
			return
		}

		if err := s.Documents.Delete(deleted.ObjectKey); err != nil {
			s.Logger.Warn("failed to remove document object",
				zap.String("document", deleted.ID), zap.String("key", deleted.ObjectKey), zap.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDocumentURL(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		doc := readableDocument(w, r, s.DocumentsStore, s.Logger)
		if doc == nil {
			return
		}

		signed, err := s.Signer.SignURL(storage.DocumentsBucket, doc.ObjectKey, s.Config.SignedURLLifetime())
		audit.Log(audit.DocumentEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			DocumentID:   doc.ID,
			Title:        doc.Title,
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
