package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/identity"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
	"github.com/cmformation/formation-portal/pkg/token"
)

const bearerPrefix = "Bearer "

// TokenParser verifies access tokens
type TokenParser interface {
	ParseAccess(raw string) (*token.Parsed, error)
}

// ProfileLoader reads the current state of a token's profile
type ProfileLoader interface {
	Get(id string) (*model.Profile, error)
}

// JWTAuthenticator is middleware that validates bearer access tokens.
// The role and email of the request identity come from the stored profile,
// so role changes and deletions apply to tokens already issued.
type JWTAuthenticator struct {
	Tokens   TokenParser
	Profiles ProfileLoader
	Logger   *zap.Logger
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(tokens TokenParser, profiles ProfileLoader, logger *zap.Logger) *JWTAuthenticator {
	return &JWTAuthenticator{Tokens: tokens, Profiles: profiles, Logger: logger}
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	return tok, tok != ""
}

// Middleware returns an HTTP middleware that validates access tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			unauthorized(w, "Authorization missing")
			return
		}

		raw, ok := BearerToken(authHeader)
		if !ok {
			unauthorized(w, "Malformed authorization header")
			return
		}

		parsed, err := j.Tokens.ParseAccess(raw)
		if errors.Is(err, token.ErrExpired) {
			unauthorized(w, "Token expired")
			return
		}
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		profile, err := j.Profiles.Get(parsed.Sub())
		if errors.Is(err, store.ErrNotFound) {
			unauthorized(w, "Profile not found")
			return
		}
		if err != nil {
			j.Logger.Error("failed to load token profile", zap.String("profile_id", parsed.Sub()), zap.Error(err))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("internal server error"))
			return
		}

		id := identity.FromToken(parsed).WithProfile(profile).WithRemoteIP(identity.ClientIP(r.RemoteAddr))
		r = r.WithContext(identity.Set(r.Context(), id))

		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose identity ranks below role
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := identity.Get(r.Context())
			if !id.Can(role) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte("Insufficient privilege"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer realm="formation-portal"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(reason))
}
