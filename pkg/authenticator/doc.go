// Package authenticator defines the interface for portal authenticators.
//
// # Authenticator Interface
//
// All authenticators implement the Authenticator interface:
//
//	type Authenticator interface {
//	    Name() string
//	    Authenticate(ctx context.Context, input Input) (*model.Profile, error)
//	    Status(ctx context.Context) error
//	}
//
// # Built-in Authenticators
//
//   - authn: email and bcrypt password - see [github.com/cmformation/formation-portal/pkg/authenticator/authn]
//
// Authenticators are installed into a Registry at server start. Failed
// logins return ErrAuthenticationFailed without saying whether the email
// exists.
package authenticator
