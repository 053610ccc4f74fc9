package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/model"
)

func TestWhoamiEndpoint(t *testing.T) {
	env := newTestEnv(t)
	profile, auth := env.login(t, "admin@example.org", model.RoleAdmin)

	t.Run("whoami with valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()

		env.srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode[WhoamiResponse](t, w)
		assert.Equal(t, profile.ID, body.ProfileID)
		assert.Equal(t, "admin@example.org", body.Email)
		assert.Equal(t, model.RoleAdmin, body.Role)
		assert.Equal(t, "198.51.100.7", body.ClientIP)
		assert.NotZero(t, body.TokenIAT)
	})

	t.Run("whoami without token", func(t *testing.T) {
		w := env.do(t, "GET", "/whoami", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authorization missing", w.Body.String())
	})

	t.Run("whoami with forwarded address", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", auth)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()

		env.srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "203.0.113.9", decode[WhoamiResponse](t, w).ClientIP)
	})
}
