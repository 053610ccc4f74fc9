// Package token issues and verifies the portal's HS256 JWTs.
//
// Access tokens identify a profile (sub, email, role) for the lifetime of
// access_token_ttl. Invitation tokens (typ=invite) let an invited profile
// set its first password.
//
// # Basic Usage
//
//	issuer := token.NewIssuer(key, time.Hour, 7*24*time.Hour)
//	raw, expiresAt, err := issuer.IssueAccess(profile)
//
//	tok, err := issuer.ParseAccess(raw)
//	if errors.Is(err, token.ErrExpired) {
//	    // ask for a new login
//	}
//	profileID := tok.Sub()
package token
