package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o600))
	t.Setenv("PORTAL_CONFIG_PATH", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORTAL_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.AccessTokenTTL)
	assert.Equal(t, 300, cfg.SignedURLTTL)
	assert.Equal(t, "confrere", cfg.WordPressMemberType)
	assert.Equal(t, []string{"province", "position", "formation_state"}, cfg.WordPressTaxonomies.All())
	assert.Equal(t, "default", cfg.Source("access_token_ttl"))
	assert.Equal(t, "default", cfg.Source("unknown_attribute"))
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	writeConfigFile(t, `
access_token_ttl: 600
wordpress_url: https://example.org
wordpress_taxonomies:
  formation_state: etape
cors_origins:
  - https://portal.example.org
`)
	t.Setenv("PORTAL_ACCESS_TOKEN_TTL", "900")
	t.Setenv("PORTAL_LOG_JSON", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 900, cfg.AccessTokenTTL)
	assert.Equal(t, "environment", cfg.Source("access_token_ttl"))

	assert.Equal(t, "https://example.org", cfg.WordPressURL)
	assert.Equal(t, "file", cfg.Source("wordpress_url"))

	assert.Equal(t, "etape", cfg.WordPressTaxonomies.FormationState)
	assert.Equal(t, "province", cfg.WordPressTaxonomies.Province)
	assert.Equal(t, []string{"https://portal.example.org"}, cfg.CORSOrigins)
	assert.True(t, cfg.LogJSON)
	assert.True(t, cfg.WordPressEnabled())
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_TaxonomiesFromEnvironment(t *testing.T) {
	t.Setenv("PORTAL_CONFIG_PATH", t.TempDir())
	t.Setenv("PORTAL_WORDPRESS_TAXONOMIES", "provincia, cargo ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "provincia", cfg.WordPressTaxonomies.Province)
	assert.Equal(t, "cargo", cfg.WordPressTaxonomies.Position)
	assert.Equal(t, "formation_state", cfg.WordPressTaxonomies.FormationState)
}

func TestLoad_InvalidYAML(t *testing.T) {
	writeConfigFile(t, "access_token_ttl: [not, a, number")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *PortalConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *PortalConfig) {}},
		{name: "zero ttl", mutate: func(c *PortalConfig) { c.SignedURLTTL = 0 }, wantErr: true},
		{name: "per page over wordpress limit", mutate: func(c *PortalConfig) { c.WordPressPerPage = 101 }, wantErr: true},
		{name: "non http wordpress url", mutate: func(c *PortalConfig) { c.WordPressURL = "ftp://example.org" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *PortalConfig) { c.LogLevel = "verbose" }, wantErr: true},
		{name: "https mail api", mutate: func(c *PortalConfig) { c.MailAPIURL = "https://api.mail.example" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServing_RequiresSigningKey(t *testing.T) {
	cfg := newDefault()
	assert.Error(t, cfg.ValidateServing())

	cfg.SigningKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateServing())
}

func TestFormatJSON_RedactsSecrets(t *testing.T) {
	cfg := newDefault()
	cfg.SigningKey = "super-secret-signing-key"
	cfg.MailAPIKey = "re_123"

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret-signing-key")
	assert.NotContains(t, out, "re_123")

	var decoded struct {
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded.Attributes, len(attributeNames()))
}

func TestFormatText(t *testing.T) {
	cfg := newDefault()
	out := cfg.FormatText()
	assert.Contains(t, out, "wordpress_url")
	assert.Contains(t, out, "(not set)")
}
