package endpoints

import (
	"net/http"
	"time"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	ProfileID string     `json:"profile_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	ClientIP  string     `json:"client_ip"`
	TokenIAT  int64      `json:"token_iat,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoint
func RegisterWhoamiEndpoint(s *server.Server) {
	// Create a subrouter for /whoami that uses JWT auth
	whoamiRouter := s.Router.PathPrefix("/whoami").Subrouter()
	whoamiRouter.Use(s.JWTMiddleware.Middleware)

	whoamiRouter.HandleFunc("", handleWhoami()).Methods("GET")
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		if id == nil {
			http.Error(w, "Unable to determine identity", http.StatusUnauthorized)
			return
		}

		response := WhoamiResponse{
			ProfileID: id.ProfileID,
			Email:     id.Email,
			Role:      id.Role,
			ClientIP:  clientIP(r),
			ExpiresAt: id.ExpiresAt,
		}
		if !id.IssuedAt.IsZero() {
			response.TokenIAT = id.IssuedAt.Unix()
		}

		respondWithJSON(w, http.StatusOK, response)
	}
}
