// Package identity provides authenticated identity management for portal requests.
//
// An Identity combines access token claims (profile id, email, role) with
// request-specific context such as the client IP.
//
// # Basic Usage
//
//	id := identity.FromToken(parsedToken).WithProfile(profile).WithRemoteIP(identity.ClientIP(r.RemoteAddr))
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
//	if ok && id.Can(model.RoleEditor) {
//	    // editor-only work
//	}
package identity
