package authenticator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cmformation/formation-portal/pkg/model"
)

// ErrAuthenticationFailed is returned for unknown accounts and wrong credentials alike
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrNotEnabled is returned when authenticating through a disabled authenticator
var ErrNotEnabled = errors.New("authenticator is not enabled")

// Authenticator verifies credentials and resolves them to a profile
type Authenticator interface {
	// Name returns the authenticator name (e.g., "authn")
	Name() string

	// Authenticate validates credentials and returns the matching profile
	Authenticate(ctx context.Context, input Input) (*model.Profile, error)

	// Status checks if the authenticator is healthy
	Status(ctx context.Context) error
}

// Input contains the input for authentication
type Input struct {
	Email       string
	Credentials []byte
	ClientIP    string
}

// Registry holds the installed authenticators and which of them are enabled
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]Authenticator
	enabled        map[string]bool
}

// NewRegistry creates a new authenticator registry
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]Authenticator),
		enabled:        make(map[string]bool),
	}
}

// Register installs and enables an authenticator
func (r *Registry) Register(auth Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authenticators[auth.Name()] = auth
	r.enabled[auth.Name()] = true
}

// Disable keeps an authenticator installed but rejects logins through it
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enabled, name)
}

// Get returns an installed authenticator by name
func (r *Registry) Get(name string) (Authenticator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auth, ok := r.authenticators[name]
	return auth, ok
}

// Enabled returns the enabled authenticator names, sorted
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.enabled))
	for name := range r.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticate runs input through the named authenticator
func (r *Registry) Authenticate(ctx context.Context, name string, input Input) (*model.Profile, error) {
	r.mu.RLock()
	auth, installed := r.authenticators[name]
	enabled := r.enabled[name]
	r.mu.RUnlock()

	if !installed {
		return nil, fmt.Errorf("authenticator %q not found", name)
	}
	if !enabled {
		return nil, fmt.Errorf("%w: %s", ErrNotEnabled, name)
	}
	return auth.Authenticate(ctx, input)
}

// Status checks every enabled authenticator and returns the failures by name
func (r *Registry) Status(ctx context.Context) map[string]error {
	failures := map[string]error{}
	for _, name := range r.Enabled() {
		auth, _ := r.Get(name)
		if err := auth.Status(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}
