package endpoints

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/config"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
)

// TestSigningKey signs tokens and URLs of test servers
const TestSigningKey = "formation-portal-test-signing-key"

// TestConfig returns a configuration for servers built in tests.
// WordPress and mail are left unconfigured.
func TestConfig() *config.PortalConfig {
	return &config.PortalConfig{
		SigningKey:          TestSigningKey,
		AccessTokenTTL:      3600,
		SignedURLTTL:        300,
		InviteTTL:           7 * 24 * 3600,
		StorageRoot:         "/storage",
		MaxUploadBytes:      1 << 20,
		PublicBaseURL:       "http://portal.test",
		WordPressMemberType: "confrere",
		WordPressTaxonomies: config.Taxonomies{
			Province:       "province",
			Position:       "position",
			FormationState: "formation_state",
		},
		WordPressPerPage: 100,
		LogLevel:         "info",
	}
}

// NewTestServer creates a server over db and fs with every endpoint registered
func NewTestServer(cfg *config.PortalConfig, db *gorm.DB, fs afero.Fs) (*server.Server, error) {
	s, err := server.NewServer(cfg, db, fs, zap.NewNop(), "127.0.0.1", "0")
	if err != nil {
		return nil, err
	}
	RegisterAll(s)
	return s, nil
}

// CreateTestProfile stores a profile that can log in with password
func CreateTestProfile(s *server.Server, email string, role model.Role, password string) (*model.Profile, error) {
	profile := &model.Profile{Email: email, FullName: email, Role: role}
	if err := s.ProfilesStore.Create(profile); err != nil {
		return nil, err
	}
	if password == "" {
		return profile, nil
	}

	hash, err := authn.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.ProfilesStore.SetPassword(profile.ID, hash); err != nil {
		return nil, err
	}
	profile.PasswordHash = &hash
	return profile, nil
}

// InviteTestProfile stores a profile that has been invited but has no password yet
func InviteTestProfile(s *server.Server, email string, role model.Role) (*model.Profile, error) {
	now := time.Now().UTC()
	profile := &model.Profile{Email: email, Role: role, InvitedAt: &now}
	if err := s.ProfilesStore.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GenerateTestToken returns an Authorization header value for profile
func GenerateTestToken(s *server.Server, profile *model.Profile) (string, error) {
	tok, _, err := s.Tokens.IssueAccess(profile)
	if err != nil {
		return "", err
	}
	return "Bearer " + tok, nil
}
