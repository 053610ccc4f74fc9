package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/model"
)

func TestHandleStatus(t *testing.T) {
	handler := handleStatus(TestConfig())

	t.Run("returns HTML status page", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Le serveur fonctionne.")
		assert.Contains(t, w.Body.String(), "/css/status-page.css")
	})

	t.Run("returns JSON when Accept header is application/json", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		status := decode[StatusResponse](t, w)
		assert.NotEmpty(t, status.Version)
		assert.False(t, status.WordPress)
	})
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/css/status-page.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".status-text")
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s, mockDB, err := NewMockTestServer()
		require.NoError(t, err)
		defer mockDB.Close()

		mockDB.ExpectPing()

		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode[HealthResponse](t, w).Status)
		assert.NoError(t, mockDB.VerifyExpectations())
	})

	t.Run("database down", func(t *testing.T) {
		s, mockDB, err := NewMockTestServer()
		require.NoError(t, err)
		defer mockDB.Close()

		mockDB.ExpectPingFailure(errors.New("connection refused"))

		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode[HealthResponse](t, w)
		assert.Equal(t, "error", body.Status)
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.NoError(t, mockDB.VerifyExpectations())
	})
}

func TestAuthenticators(t *testing.T) {
	s, mockDB, err := NewMockTestServer()
	require.NoError(t, err)
	defer mockDB.Close()

	t.Run("lists enabled authenticators", func(t *testing.T) {
		mockDB.ExpectPing()

		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/authenticators", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decode[AuthenticatorsResponse](t, w)
		assert.Equal(t, []string{"authn"}, body.Enabled)
		assert.Equal(t, map[string]string{"authn": "ok"}, body.Status)
	})

	t.Run("status of an unhealthy authenticator", func(t *testing.T) {
		mockDB.ExpectPingFailure(errors.New("connection refused"))

		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/authenticators/authn/status", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "error", decode[AuthenticatorStatusResponse](t, w).Status)
	})

	t.Run("unknown authenticator", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/authenticators/authn-oidc/status", nil))

		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	assert.NoError(t, mockDB.VerifyExpectations())
}

func TestDatabaseErrorsAreNotLeaked(t *testing.T) {
	s, mockDB, err := NewMockTestServer()
	require.NoError(t, err)
	defer mockDB.Close()

	profile := &model.Profile{
		ID:    "0b6f1c52-3f4e-4f0e-9a43-5d1c1f0f7a10",
		Email: "frere.luc@example.org",
		Role:  model.RoleMember,
	}
	auth, err := GenerateTestToken(s, profile)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		expect func(error)
	}{
		{name: "token profile", path: "/profiles/me", expect: mockDB.ExpectProfileQueryError},
		{name: "documents", path: "/documents", expect: func(err error) {
			mockDB.ExpectProfileLookup(profile)
			mockDB.ExpectDocumentsQueryError(err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expect(errors.New("pq: terminating connection due to administrator command"))

			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Authorization", auth)
			w := httptest.NewRecorder()
			s.Router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), "internal server error")
			assert.NotContains(t, w.Body.String(), "administrator command")
		})
	}

	assert.NoError(t, mockDB.VerifyExpectations())
}
