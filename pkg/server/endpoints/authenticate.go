package endpoints

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/audit"
	"github.com/cmformation/formation-portal/pkg/authenticator"
	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/token"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AcceptInviteRequest is the body of POST /auth/accept-invite
type AcceptInviteRequest struct {
	Token    string  `json:"token"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

// ChangePasswordRequest is the body of PUT /auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenResponse carries a freshly issued access token
type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Profile     *model.Profile `json:"profile"`
}

// RegisterAuthenticateEndpoints registers login, invitation acceptance and password change
func RegisterAuthenticateEndpoints(s *server.Server) {
	authRouter := s.Router.PathPrefix("/auth").Subrouter()

	// POST /auth/login - Exchange email and password for an access token
	authRouter.HandleFunc("/login", handleLogin(s.Authenticators, s.Tokens, s.Logger)).Methods("POST")

	// POST /auth/accept-invite - Set the first password with an invitation token
	authRouter.HandleFunc("/accept-invite", handleAcceptInvite(s.ProfilesStore, s.Tokens, s.Logger)).Methods("POST")

	// PUT /auth/password - Change the caller's password
	passwordRouter := authRouter.PathPrefix("/password").Subrouter()
	passwordRouter.Use(s.JWTMiddleware.Middleware)
	passwordRouter.HandleFunc("", handleChangePassword(s.ProfilesStore, s.Logger)).Methods("PUT")
}

func issueTokenResponse(w http.ResponseWriter, tokens *token.Issuer, logger *zap.Logger, profile *model.Profile) {
	accessToken, expiresAt, err := tokens.IssueAccess(profile)
	if err != nil {
		logger.Error("failed to issue access token", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Profile:     profile,
	})
}

func handleLogin(registry *authenticator.Registry, tokens *token.Issuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		email := model.NormalizeEmail(req.Email)
		ip := clientIP(r)

		profile, err := registry.Authenticate(r.Context(), "authn", authenticator.Input{
			Email:       email,
			Credentials: []byte(req.Password),
			ClientIP:    ip,
		})
		if err != nil {
			audit.Log(audit.LoginEvent{
				Email:        email,
				ClientIP:     ip,
				Method:       "authn",
				Success:      false,
				ErrorMessage: err.Error(),
			})
			if errors.Is(err, authenticator.ErrAuthenticationFailed) {
				respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
				return
			}
			logger.Error("login failed", zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		audit.Log(audit.LoginEvent{
			Email:     email,
			ProfileID: profile.ID,
			ClientIP:  ip,
			Method:    "authn",
			Success:   true,
		})
		issueTokenResponse(w, tokens, logger, profile)
	}
}

func handleAcceptInvite(profiles store.ProfilesStore, tokens *token.Issuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AcceptInviteRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		ip := clientIP(r)

		invite, err := tokens.ParseInvite(strings.TrimSpace(req.Token))
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invitation link is invalid or expired")
			return
		}

		profile, err := profiles.Get(invite.Sub())
		if errors.Is(err, store.ErrNotFound) || (err == nil && profile.Email != invite.Email()) {
			respondWithError(w, http.StatusUnauthorized, "Invitation link is invalid or expired")
			return
		}
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if profile.HasPassword() {
			respondWithError(w, http.StatusConflict, "Invitation already accepted")
			return
		}

		hash, err := authn.HashPassword(req.Password)
		if errors.Is(err, authn.ErrWeakPassword) {
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if err := profiles.SetPassword(profile.ID, hash); err != nil {
			audit.Log(audit.PasswordEvent{ProfileID: profile.ID, ClientIP: ip, Success: false, ErrorMessage: err.Error()})
			respondWithStoreError(w, logger, err)
			return
		}
		if name := trimmed(req.FullName); name != nil && *name != "" {
			if profile, err = profiles.Update(profile.ID, store.ProfileUpdate{FullName: name}); err != nil {
				respondWithStoreError(w, logger, err)
				return
			}
		}
		audit.Log(audit.PasswordEvent{ProfileID: profile.ID, ClientIP: ip, Success: true})

		profile.PasswordHash = &hash
		issueTokenResponse(w, tokens, logger, profile)
	}
}

func handleChangePassword(profiles store.ProfilesStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		ip := clientIP(r)

		var req ChangePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		profile, err := profiles.Get(id.ProfileID)
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if !profile.HasPassword() || !authn.CheckPassword(*profile.PasswordHash, []byte(req.CurrentPassword)) {
			audit.Log(audit.PasswordEvent{ProfileID: profile.ID, ClientIP: ip, Success: false, ErrorMessage: "current password mismatch"})
			respondWithError(w, http.StatusForbidden, "Current password is incorrect")
			return
		}

		hash, err := authn.HashPassword(req.NewPassword)
		if errors.Is(err, authn.ErrWeakPassword) {
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err != nil {
			respondWithStoreError(w, logger, err)
			return
		}
		if err := profiles.SetPassword(profile.ID, hash); err != nil {
			respondWithStoreError(w, logger, err)
			return
		}

		audit.Log(audit.PasswordEvent{ProfileID: profile.ID, ClientIP: ip, Success: true})
		w.WriteHeader(http.StatusNoContent)
	}
}
