package endpoints

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/token"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	profile, err := CreateTestProfile(env.srv, "alice@example.org", model.RoleEditor, testPassword)
	require.NoError(t, err)
	_, err = InviteTestProfile(env.srv, "pending@example.org", model.RoleMember)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		w := env.do(t, "POST", "/auth/login", "", LoginRequest{Email: "  Alice@Example.org ", Password: testPassword})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode[TokenResponse](t, w)
		assert.Equal(t, "Bearer", body.TokenType)
		assert.Equal(t, profile.ID, body.Profile.ID)
		assert.NotContains(t, w.Body.String(), "password_hash")
		assert.WithinDuration(t, time.Now().Add(time.Hour), body.ExpiresAt, time.Minute)

		parsed, err := env.srv.Tokens.ParseAccess(body.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, parsed.Sub())
		assert.Equal(t, model.RoleEditor, parsed.Role())
	})

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "alice@example.org", Password: "not the password"}},
		{"unknown email", LoginRequest{Email: "bob@example.org", Password: testPassword}},
		{"invitation not accepted", LoginRequest{Email: "pending@example.org", Password: testPassword}},
		{"empty password", LoginRequest{Email: "alice@example.org"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/auth/login", "", tt.req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Invalid email or password", decode[errorResponse](t, w).Error.Message)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		w := env.do(t, "POST", "/auth/login", "", map[string]string{"login": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAcceptInvite(t *testing.T) {
	env := newTestEnv(t)
	invited, err := InviteTestProfile(env.srv, "novice@example.org", model.RoleMember)
	require.NoError(t, err)
	inviteToken, _, err := env.srv.Tokens.IssueInvite(invited)
	require.NoError(t, err)

	t.Run("weak password", func(t *testing.T) {
		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: inviteToken, Password: "short"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("access token is not an invitation", func(t *testing.T) {
		access, _, err := env.srv.Tokens.IssueAccess(invited)
		require.NoError(t, err)
		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: access, Password: testPassword})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("sets the password and logs in", func(t *testing.T) {
		name := "Frère Jean"
		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: inviteToken, Password: testPassword, FullName: &name})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode[TokenResponse](t, w)
		assert.Equal(t, invited.ID, body.Profile.ID)
		assert.Equal(t, "Frère Jean", body.Profile.FullName)

		stored, err := env.srv.ProfilesStore.Get(invited.ID)
		require.NoError(t, err)
		require.True(t, stored.HasPassword())
		assert.True(t, authn.CheckPassword(*stored.PasswordHash, []byte(testPassword)))
	})

	t.Run("cannot be accepted twice", func(t *testing.T) {
		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: inviteToken, Password: "another strong password"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("deleted profile", func(t *testing.T) {
		gone, err := InviteTestProfile(env.srv, "gone@example.org", model.RoleMember)
		require.NoError(t, err)
		tok, _, err := env.srv.Tokens.IssueInvite(gone)
		require.NoError(t, err)
		require.NoError(t, env.srv.ProfilesStore.Delete(gone.ID))

		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: tok, Password: testPassword})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired invitation", func(t *testing.T) {
		other, err := InviteTestProfile(env.srv, "late@example.org", model.RoleMember)
		require.NoError(t, err)
		expired, _, err := token.NewIssuer([]byte(TestSigningKey), time.Hour, -time.Minute).IssueInvite(other)
		require.NoError(t, err)

		w := env.do(t, "POST", "/auth/accept-invite", "", AcceptInviteRequest{Token: expired, Password: testPassword})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	profile, auth := env.login(t, "alice@example.org", model.RoleMember)

	t.Run("requires a token", func(t *testing.T) {
		w := env.do(t, "PUT", "/auth/password", "", ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "brand new password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		w := env.do(t, "PUT", "/auth/password", auth, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "brand new password"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("weak new password", func(t *testing.T) {
		w := env.do(t, "PUT", "/auth/password", auth, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "short"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("changes the password", func(t *testing.T) {
		w := env.do(t, "PUT", "/auth/password", auth, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "brand new password"})
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		w = env.do(t, "POST", "/auth/login", "", LoginRequest{Email: profile.Email, Password: "brand new password"})
		assert.Equal(t, http.StatusOK, w.Code)
		w = env.do(t, "POST", "/auth/login", "", LoginRequest{Email: profile.Email, Password: testPassword})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
