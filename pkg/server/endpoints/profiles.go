package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/mail"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/middleware"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

// UpdateProfileRequest is the body of PATCH /profiles/me and /profiles/{id}.
// Role is ignored on /profiles/me.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// InviteRequest is the body of POST /profiles/invite
type InviteRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// InviteResponse describes a sent invitation
type InviteResponse struct {
	Profile   *model.Profile `json:"profile"`
	ExpiresAt time.Time      `json:"expires_at"`
	Resent    bool           `json:"resent"`
}

// RegisterProfilesEndpoints registers profile self-service and administration
func RegisterProfilesEndpoints(s *server.Server) {
	profiles := s.ProfilesStore
	logger := s.Logger
	requireAdmin := middleware.RequireRole(model.RoleAdmin)

	profilesRouter := s.Router.PathPrefix("/profiles").Subrouter()
	profilesRouter.Use(s.JWTMiddleware.Middleware)

	// GET /profiles - List every profile (admin)
	profilesRouter.Handle("", requireAdmin(handleListProfiles(profiles, logger))).Methods("GET")

	// GET|PATCH /profiles/me - The caller's own profile
	profilesRouter.HandleFunc("/me", handleGetOwnProfile(profiles, logger)).Methods("GET")
	profilesRouter.HandleFunc("/me", handleUpdateOwnProfile(profiles, logger)).Methods("PATCH")

	// POST /profiles/invite - Create a profile and email an invitation (admin)
	profilesRouter.Handle("/invite", requireAdmin(handleInvite(s))).Methods("POST")

	// PATCH|DELETE /profiles/{id} - Administer another profile (admin)
	profilesRouter.Handle("/{id}", requireAdmin(handleUpdateProfile(profiles, logger))).Methods("PATCH")
	profilesRouter.Handle("/{id}", requireAdmin(handleDeleteProfile(profiles, logger))).Methods("DELETE")
}

func handleListProfiles(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := profiles.List()
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if list == nil {
			list = []model.Profile{}
		}
		respondWithJSON(w, http.StatusOK, list)
	}
}

func handleGetOwnProfile(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := profiles.Get(currentIdentity(r).ProfileID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, profile)
	}
}

func handleUpdateOwnProfile(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)

		var req UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Role != nil {
			respondWithError(w, http.StatusForbidden, "Profiles cannot change their own role")
			return
		}

		profile, err := profiles.Update(id.ProfileID, store.ProfileUpdate{FullName: trimmed(req.FullName)})
		audit.Log(audit.ProfileEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			ProfileID:    id.ProfileID,
			Operation:    "update",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, profile)
	}
}

func handleUpdateProfile(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		profileID := mux.Vars(r)["id"]

		var req UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		update := store.ProfileUpdate{FullName: trimmed(req.FullName)}
		if req.Role != nil {
			role, err := model.ParseRole(*req.Role)
			if err != nil {
				respondWithError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			if profileID == id.ProfileID && role != id.Role {
				respondWithError(w, http.StatusUnprocessableEntity, "Administrators cannot change their own role")
				return
			}
			update.Role = &role
		}

		profile, err := profiles.Update(profileID, update)
		audit.Log(audit.ProfileEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			ProfileID:    profileID,
			Operation:    "update",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, profile)
	}
}

func handleDeleteProfile(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		profileID := mux.Vars(r)["id"]

		if profileID == id.ProfileID {
			respondWithError(w, http.StatusUnprocessableEntity, "Administrators cannot delete their own profile")
			return
		}

		err := profiles.Delete(profileID)
		audit.Log(audit.ProfileEvent{
			ActorID:      id.ProfileID,
			ClientIP:     clientIP(r),
			ProfileID:    profileID,
			Operation:    "delete",
			Success:      err == nil,
			ErrorMessage: errorMessage(err),
		})
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleInvite(s *server.Server) http.HandlerFunc {
	profiles := s.ProfilesStore
	logger := s.Logger

	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		ip := clientIP(r)

		var req InviteRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		email := model.NormalizeEmail(req.Email)
		if !strings.Contains(email, "@") {
			respondWithError(w, http.StatusUnprocessableEntity, "A valid email address is required")
			return
		}
		role := model.RoleMember
		if req.Role != "" {
			parsed, err := model.ParseRole(req.Role)
			if err != nil {
				respondWithError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			role = parsed
		}

		fail := func(code int, err error) {
			audit.Log(audit.InviteEvent{
				ActorID:      id.ProfileID,
				ClientIP:     ip,
				Email:        email,
				Role:         string(role),
				Success:      false,
				ErrorMessage: err.Error(),
			})
			if code == http.StatusInternalServerError {
				respondWithStoreError(w, logger, err)
				return
			}
			respondWithError(w, code, err.Error())
		}

		resent := false
		profile, err := profiles.GetByEmail(email)
		switch {
		case err == nil && profile.HasPassword():
			fail(http.StatusConflict, fmt.Errorf("%w: %s already has an account", store.ErrConflict, email))
			return
		case err == nil:
			resent = true
		case errors.Is(err, store.ErrNotFound):
			now := time.Now().UTC()
			profile = &model.Profile{
				Email:     email,
				FullName:  strings.TrimSpace(req.FullName),
				Role:      role,
				InvitedAt: &now,
			}
			if err := profiles.Create(profile); err != nil {
				fail(statusFor(err), err)
				return
			}
		default:
			fail(http.StatusInternalServerError, err)
			return
		}

		inviteToken, expiresAt, err := s.Tokens.IssueInvite(profile)
		if err != nil {
			fail(http.StatusInternalServerError, err)
			return
		}

		msg, err := mail.InviteEmail(mail.InviteData{
			FullName:  profile.FullName,
			Email:     profile.Email,
			InvitedBy: id.Email,
			AcceptURL: strings.TrimRight(s.Config.PublicBaseURL, "/") + "/accept-invite?token=" + url.QueryEscape(inviteToken),
			ExpiresAt: expiresAt,
		})
		if err != nil {
			fail(http.StatusInternalServerError, err)
			return
		}
		if err := s.Mailer.Send(r.Context(), msg); err != nil {
			logger.Error("failed to send invitation", zap.String("email", email), zap.Error(err))
			audit.Log(audit.InviteEvent{
				ActorID:      id.ProfileID,
				ClientIP:     ip,
				Email:        email,
				Role:         string(profile.Role),
				Success:      false,
				ErrorMessage: err.Error(),
			})
			respondWithError(w, http.StatusBadGateway, "Failed to send the invitation email")
			return
		}

		audit.Log(audit.InviteEvent{
			ActorID:  id.ProfileID,
			ClientIP: ip,
			Email:    email,
			Role:     string(profile.Role),
			Success:  true,
		})

		code := http.StatusCreated
		if resent {
			code = http.StatusOK
		}
		respondWithJSON(w, code, InviteResponse{Profile: profile, ExpiresAt: expiresAt, Resent: resent})
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
