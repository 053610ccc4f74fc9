package authn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/authenticator"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

type fakeProfiles map[string]*model.Profile

func (f fakeProfiles) GetByEmail(email string) (*model.Profile, error) {
	if email == "broken@example.org" {
		return nil, errors.New("connection reset")
	}
	p, ok := f[model.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) CheckConnectivity() error { return f.err }

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	return New(fakeProfiles{
		"alice@example.org":   {ID: "p1", Email: "alice@example.org", Role: model.RoleAdmin, PasswordHash: &hash},
		"invited@example.org": {ID: "p2", Email: "invited@example.org", Role: model.RoleMember},
	}, fakeHealth{})
}

func TestAuthenticator_Name(t *testing.T) {
	assert.Equal(t, "authn", New(fakeProfiles{}, nil).Name())
}

func TestAuthenticator_Authenticate_Success(t *testing.T) {
	auth := newTestAuthenticator(t)

	profile, err := auth.Authenticate(context.Background(), authenticator.Input{
		Email:       "Alice@Example.org",
		Credentials: []byte("correct horse battery"),
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", profile.ID)
}

func TestAuthenticator_Authenticate_Failures(t *testing.T) {
	auth := newTestAuthenticator(t)

	tests := []struct {
		name  string
		input authenticator.Input
	}{
		{name: "wrong password", input: authenticator.Input{Email: "alice@example.org", Credentials: []byte("wrong password!")}},
		{name: "unknown email", input: authenticator.Input{Email: "nobody@example.org", Credentials: []byte("correct horse battery")}},
		{name: "invite pending", input: authenticator.Input{Email: "invited@example.org", Credentials: []byte("correct horse battery")}},
		{name: "missing email", input: authenticator.Input{Credentials: []byte("x")}},
		{name: "missing password", input: authenticator.Input{Email: "alice@example.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), tt.input)
			assert.ErrorIs(t, err, authenticator.ErrAuthenticationFailed)
		})
	}
}

func TestAuthenticator_Authenticate_StoreError(t *testing.T) {
	auth := newTestAuthenticator(t)

	_, err := auth.Authenticate(context.Background(), authenticator.Input{Email: "broken@example.org", Credentials: []byte("x")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, authenticator.ErrAuthenticationFailed)
}

func TestAuthenticator_Status(t *testing.T) {
	assert.NoError(t, New(fakeProfiles{}, fakeHealth{}).Status(context.Background()))
	assert.Error(t, New(fakeProfiles{}, fakeHealth{err: errors.New("down")}).Status(context.Background()))
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("ten chars!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, []byte("ten chars!")))
	assert.False(t, CheckPassword(hash, []byte("ten chars?")))
}
