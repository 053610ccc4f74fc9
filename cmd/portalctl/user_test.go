package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword()
	require.NoError(t, err)
	b, err := generatePassword()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), authn.MinPasswordLength)
	_, err = base64.RawURLEncoding.DecodeString(a)
	assert.NoError(t, err)
}

func TestCreateUser_ValidatesBeforeConnecting(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := createUser("jean@example.org", "", "owner")
	assert.Error(t, err)

	_, err = createUser("jean", "", "member")
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = createUser("jean@example.org", "", "member")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
