package identity

import (
	"context"
	"net"
	"time"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/token"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated profile behind a request.
// It combines token claims with request-specific context.
type Identity struct {
	// Token claims
	ProfileID string
	Email     string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP

	// The underlying parsed token
	Token *token.Parsed
}

// FromToken creates an Identity from a parsed access token.
func FromToken(tok *token.Parsed) *Identity {
	return &Identity{
		ProfileID: tok.Sub(),
		Email:     tok.Email(),
		Role:      tok.Role(),
		IssuedAt:  tok.IAT(),
		ExpiresAt: tok.Exp(),
		Token:     tok,
	}
}

// WithProfile replaces the token's email and role with the stored profile's.
func (i *Identity) WithProfile(p *model.Profile) *Identity {
	i.Email = p.Email
	i.Role = p.Role
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// Can reports whether the identity's role grants at least role.
func (i *Identity) Can(role model.Role) bool {
	return i != nil && i.Role.AtLeast(role)
}

// IsAdmin returns true for admin profiles.
func (i *Identity) IsAdmin() bool {
	return i.Can(model.RoleAdmin)
}

// ClientIP parses the client address of a request, stripping the port.
func ClientIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
