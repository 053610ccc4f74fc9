package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cmformation/formation-portal/pkg/model"
)

// Token types carried in the typ claim
const (
	TypeAccess = "access"
	TypeInvite = "invite"
)

// ErrInvalid indicates a token that fails signature, algorithm or claim checks
var ErrInvalid = errors.New("invalid token")

// ErrExpired indicates a well-formed token past its expiry
var ErrExpired = errors.New("token has expired")

// Claims are the JWT claims of portal tokens
type Claims struct {
	Type  string     `json:"typ"`
	Email string     `json:"email"`
	Role  model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Parsed represents a verified portal token
type Parsed struct {
	claims *Claims
}

// Sub returns the profile id the token was issued for
func (p *Parsed) Sub() string {
	return p.claims.Subject
}

// Email returns the email claim
func (p *Parsed) Email() string {
	return p.claims.Email
}

// Role returns the role claim; empty for invitation tokens
func (p *Parsed) Role() model.Role {
	return p.claims.Role
}

// Type returns the typ claim
func (p *Parsed) Type() string {
	return p.claims.Type
}

// IAT returns the issued-at time in UTC
func (p *Parsed) IAT() time.Time {
	if p.claims.IssuedAt == nil {
		return time.Time{}
	}
	return p.claims.IssuedAt.Time.UTC()
}

// Exp returns the expiration time in UTC
func (p *Parsed) Exp() time.Time {
	if p.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return p.claims.ExpiresAt.Time.UTC()
}

// Issuer signs and verifies HS256 portal tokens
type Issuer struct {
	key       []byte
	accessTTL time.Duration
	inviteTTL time.Duration
	now       func() time.Time
}

// NewIssuer creates an Issuer
func NewIssuer(key []byte, accessTTL, inviteTTL time.Duration) *Issuer {
	return &Issuer{
		key:       key,
		accessTTL: accessTTL,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// AccessTTL returns the lifetime of access tokens
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// IssueAccess returns a signed access token for profile and its expiry
func (i *Issuer) IssueAccess(profile *model.Profile) (string, time.Time, error) {
	return i.issue(TypeAccess, profile.ID, profile.Email, profile.Role, i.accessTTL)
}

// IssueInvite returns a signed invitation token for profile and its expiry
func (i *Issuer) IssueInvite(profile *model.Profile) (string, time.Time, error) {
	return i.issue(TypeInvite, profile.ID, profile.Email, "", i.inviteTTL)
}

func (i *Issuer) issue(typ, subject, email string, role model.Role, ttl time.Duration) (string, time.Time, error) {
	now := i.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := Claims{
		Type:  typ,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccess verifies an access token
func (i *Issuer) ParseAccess(raw string) (*Parsed, error) {
	parsed, err := i.parse(raw, TypeAccess)
	if err != nil {
		return nil, err
	}
	if !parsed.Role().Valid() {
		return nil, fmt.Errorf("%w: unknown role", ErrInvalid)
	}
	return parsed, nil
}

// ParseInvite verifies an invitation token
func (i *Issuer) ParseInvite(raw string) (*Parsed, error) {
	return i.parse(raw, TypeInvite)
}

func (i *Issuer) parse(raw, typ string) (*Parsed, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalid, typ)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return &Parsed{claims: claims}, nil
}
