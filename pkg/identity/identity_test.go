package identity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/token"
)

func TestFromToken(t *testing.T) {
	issuer := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour, time.Hour)
	raw, expiresAt, err := issuer.IssueAccess(&model.Profile{ID: "p1", Email: "a@example.org", Role: model.RoleAdmin})
	require.NoError(t, err)
	tok, err := issuer.ParseAccess(raw)
	require.NoError(t, err)

	id := FromToken(tok).WithRemoteIP(net.ParseIP("10.0.0.5"))
	assert.Equal(t, "p1", id.ProfileID)
	assert.Equal(t, "a@example.org", id.Email)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.Equal(t, expiresAt, id.ExpiresAt)
	assert.Equal(t, "10.0.0.5", id.RemoteIP.String())
	assert.Same(t, tok, id.Token)
}

func TestWithProfile(t *testing.T) {
	issuer := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour, time.Hour)
	raw, _, err := issuer.IssueAccess(&model.Profile{ID: "p1", Email: "old@example.org", Role: model.RoleAdmin})
	require.NoError(t, err)
	tok, err := issuer.ParseAccess(raw)
	require.NoError(t, err)

	id := FromToken(tok).WithProfile(&model.Profile{ID: "p1", Email: "new@example.org", Role: model.RoleMember})
	assert.Equal(t, "p1", id.ProfileID)
	assert.Equal(t, "new@example.org", id.Email)
	assert.Equal(t, model.RoleMember, id.Role)
	assert.False(t, id.IsAdmin())
}

func TestIdentity_Can(t *testing.T) {
	editor := &Identity{Role: model.RoleEditor}
	assert.True(t, editor.Can(model.RoleMember))
	assert.True(t, editor.Can(model.RoleEditor))
	assert.False(t, editor.Can(model.RoleAdmin))
	assert.False(t, editor.IsAdmin())

	var missing *Identity
	assert.False(t, missing.Can(model.RoleMember))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.168.1.10", ClientIP("192.168.1.10:52344").String())
	assert.Equal(t, "::1", ClientIP("[::1]:8080").String())
	assert.Equal(t, "10.1.1.1", ClientIP("10.1.1.1").String())
	assert.Nil(t, ClientIP("not-an-ip"))
}

func TestContext(t *testing.T) {
	_, ok := Get(context.Background())
	assert.False(t, ok)

	ctx := Set(context.Background(), &Identity{ProfileID: "p1"})
	id, ok := Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "p1", id.ProfileID)
}
