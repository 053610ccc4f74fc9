package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/formation-portal"
	ConfigFileName    = "portal.yml"
)

// ValidLogLevels is the list of accepted log_level values
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Taxonomies names the WordPress REST bases the directory sync reads terms from
type Taxonomies struct {
	Province       string `yaml:"province" json:"province"`
	Position       string `yaml:"position" json:"position"`
	FormationState string `yaml:"formation_state" json:"formation_state"`
}

// All returns the configured rest bases in a stable order
func (t Taxonomies) All() []string {
	return []string{t.Province, t.Position, t.FormationState}
}

// PortalConfig holds all portal configuration settings
type PortalConfig struct {
	// SigningKey is the HMAC secret for access tokens and signed URLs
	SigningKey string `yaml:"signing_key" json:"-"`

	// AccessTokenTTL is the lifetime of access tokens in seconds
	AccessTokenTTL int `yaml:"access_token_ttl" json:"access_token_ttl"`

	// SignedURLTTL is the lifetime of signed download URLs in seconds
	SignedURLTTL int `yaml:"signed_url_ttl" json:"signed_url_ttl"`

	// InviteTTL is the lifetime of invitation links in seconds
	InviteTTL int `yaml:"invite_ttl" json:"invite_ttl"`

	// StorageRoot is the directory holding the object buckets
	StorageRoot string `yaml:"storage_root" json:"storage_root"`

	// MaxUploadBytes caps multipart uploads
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes"`

	// PublicBaseURL prefixes signed URLs and invitation links
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`

	WordPressURL         string     `yaml:"wordpress_url" json:"wordpress_url"`
	WordPressUser        string     `yaml:"wordpress_user" json:"wordpress_user"`
	WordPressAppPassword string     `yaml:"wordpress_app_password" json:"-"`
	WordPressMemberType  string     `yaml:"wordpress_member_type" json:"wordpress_member_type"`
	WordPressTaxonomies  Taxonomies `yaml:"wordpress_taxonomies" json:"wordpress_taxonomies"`
	WordPressPerPage     int        `yaml:"wordpress_per_page" json:"wordpress_per_page"`

	MailAPIURL string `yaml:"mail_api_url" json:"mail_api_url"`
	MailAPIKey string `yaml:"mail_api_key" json:"-"`
	MailFrom   string `yaml:"mail_from" json:"mail_from"`

	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogFile       string `yaml:"log_file" json:"log_file"`
	LogJSON       bool   `yaml:"log_json" json:"log_json"`
	AccessLogFile string `yaml:"access_log_file" json:"access_log_file"`

	// CORSOrigins lists browser origins allowed to call the API
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *PortalConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *PortalConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *PortalConfig {
	return &PortalConfig{
		AccessTokenTTL:      3600,
		SignedURLTTL:        300,
		InviteTTL:           7 * 24 * 3600,
		StorageRoot:         "/var/lib/formation-portal/storage",
		MaxUploadBytes:      25 << 20,
		PublicBaseURL:       "http://localhost:8000",
		WordPressMemberType: "confrere",
		WordPressTaxonomies: Taxonomies{
			Province:       "province",
			Position:       "position",
			FormationState: "formation_state",
		},
		WordPressPerPage: 100,
		MailFrom:         "Formation Portal <no-reply@localhost>",
		LogLevel:         "info",
		CORSOrigins:      []string{},
		sources:          make(map[string]string),
	}
}

// Load loads configuration from .env files, the config file and environment
// variables. Environment variables take precedence over file values.
func Load() (*PortalConfig, error) {
	for _, envFile := range []string{".env", ".env.local"} {
		// Missing .env files are not an error
		_ = godotenv.Load(envFile)
	}

	config := newDefault()
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("PORTAL_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig PortalConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"signing_key", "access_token_ttl", "signed_url_ttl", "invite_ttl",
		"storage_root", "max_upload_bytes", "public_base_url",
		"wordpress_url", "wordpress_user", "wordpress_app_password",
		"wordpress_member_type", "wordpress_taxonomies", "wordpress_per_page",
		"mail_api_url", "mail_api_key", "mail_from",
		"log_level", "log_file", "log_json", "access_log_file", "cors_origins",
	}
}

func (c *PortalConfig) setString(name string, dst *string, val string, source string) {
	if val == "" {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *PortalConfig) setInt(name string, dst *int, val int, source string) {
	if val == 0 {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *PortalConfig) applyFileConfig(file *PortalConfig) {
	c.setString("signing_key", &c.SigningKey, file.SigningKey, "file")
	c.setInt("access_token_ttl", &c.AccessTokenTTL, file.AccessTokenTTL, "file")
	c.setInt("signed_url_ttl", &c.SignedURLTTL, file.SignedURLTTL, "file")
	c.setInt("invite_ttl", &c.InviteTTL, file.InviteTTL, "file")
	c.setString("storage_root", &c.StorageRoot, file.StorageRoot, "file")
	if file.MaxUploadBytes != 0 {
		c.MaxUploadBytes = file.MaxUploadBytes
		c.sources["max_upload_bytes"] = "file"
	}
	c.setString("public_base_url", &c.PublicBaseURL, file.PublicBaseURL, "file")
	c.setString("wordpress_url", &c.WordPressURL, file.WordPressURL, "file")
	c.setString("wordpress_user", &c.WordPressUser, file.WordPressUser, "file")
	c.setString("wordpress_app_password", &c.WordPressAppPassword, file.WordPressAppPassword, "file")
	c.setString("wordpress_member_type", &c.WordPressMemberType, file.WordPressMemberType, "file")
	if t := file.WordPressTaxonomies; t.Province != "" || t.Position != "" || t.FormationState != "" {
		if t.Province != "" {
			c.WordPressTaxonomies.Province = t.Province
		}
		if t.Position != "" {
			c.WordPressTaxonomies.Position = t.Position
		}
		if t.FormationState != "" {
			c.WordPressTaxonomies.FormationState = t.FormationState
		}
		c.sources["wordpress_taxonomies"] = "file"
	}
	c.setInt("wordpress_per_page", &c.WordPressPerPage, file.WordPressPerPage, "file")
	c.setString("mail_api_url", &c.MailAPIURL, file.MailAPIURL, "file")
	c.setString("mail_api_key", &c.MailAPIKey, file.MailAPIKey, "file")
	c.setString("mail_from", &c.MailFrom, file.MailFrom, "file")
	c.setString("log_level", &c.LogLevel, file.LogLevel, "file")
	c.setString("log_file", &c.LogFile, file.LogFile, "file")
	if file.LogJSON {
		c.LogJSON = true
		c.sources["log_json"] = "file"
	}
	c.setString("access_log_file", &c.AccessLogFile, file.AccessLogFile, "file")
	if len(file.CORSOrigins) > 0 {
		c.CORSOrigins = file.CORSOrigins
		c.sources["cors_origins"] = "file"
	}
}

func (c *PortalConfig) applyEnvConfig() {
	strEnv := map[string]struct {
		name string
		dst  *string
	}{
		"PORTAL_SIGNING_KEY":            {"signing_key", &c.SigningKey},
		"PORTAL_STORAGE_ROOT":           {"storage_root", &c.StorageRoot},
		"PORTAL_PUBLIC_BASE_URL":        {"public_base_url", &c.PublicBaseURL},
		"PORTAL_WORDPRESS_URL":          {"wordpress_url", &c.WordPressURL},
		"PORTAL_WORDPRESS_USER":         {"wordpress_user", &c.WordPressUser},
		"PORTAL_WORDPRESS_APP_PASSWORD": {"wordpress_app_password", &c.WordPressAppPassword},
		"PORTAL_WORDPRESS_MEMBER_TYPE":  {"wordpress_member_type", &c.WordPressMemberType},
		"PORTAL_MAIL_API_URL":           {"mail_api_url", &c.MailAPIURL},
		"PORTAL_MAIL_API_KEY":           {"mail_api_key", &c.MailAPIKey},
		"PORTAL_MAIL_FROM":              {"mail_from", &c.MailFrom},
		"PORTAL_LOG_LEVEL":              {"log_level", &c.LogLevel},
		"PORTAL_LOG_FILE":               {"log_file", &c.LogFile},
		"PORTAL_ACCESS_LOG_FILE":        {"access_log_file", &c.AccessLogFile},
	}
	for env, target := range strEnv {
		c.setString(target.name, target.dst, os.Getenv(env), "environment")
	}

	intEnv := map[string]struct {
		name string
		dst  *int
	}{
		"PORTAL_ACCESS_TOKEN_TTL":   {"access_token_ttl", &c.AccessTokenTTL},
		"PORTAL_SIGNED_URL_TTL":     {"signed_url_ttl", &c.SignedURLTTL},
		"PORTAL_INVITE_TTL":         {"invite_ttl", &c.InviteTTL},
		"PORTAL_WORDPRESS_PER_PAGE": {"wordpress_per_page", &c.WordPressPerPage},
	}
	for env, target := range intEnv {
		if val := os.Getenv(env); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*target.dst = i
				c.sources[target.name] = "environment"
			}
		}
	}

	if val := os.Getenv("PORTAL_MAX_UPLOAD_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.MaxUploadBytes = i
			c.sources["max_upload_bytes"] = "environment"
		}
	}
	if val := os.Getenv("PORTAL_LOG_JSON"); val != "" {
		c.LogJSON = val == "true" || val == "1"
		c.sources["log_json"] = "environment"
	}
	if val := os.Getenv("PORTAL_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = splitAndTrim(val)
		c.sources["cors_origins"] = "environment"
	}
	if val := os.Getenv("PORTAL_WORDPRESS_TAXONOMIES"); val != "" {
		// province,position,formation_state
		parts := strings.Split(val, ",")
		dsts := []*string{
			&c.WordPressTaxonomies.Province,
			&c.WordPressTaxonomies.Position,
			&c.WordPressTaxonomies.FormationState,
		}
		for i := 0; i < len(parts) && i < len(dsts); i++ {
			if p := strings.TrimSpace(parts[i]); p != "" {
				*dsts[i] = p
			}
		}
		c.sources["wordpress_taxonomies"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *PortalConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *PortalConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// AccessTokenLifetime returns the access token TTL as a duration
func (c *PortalConfig) AccessTokenLifetime() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

// SignedURLLifetime returns the signed URL TTL as a duration
func (c *PortalConfig) SignedURLLifetime() time.Duration {
	return time.Duration(c.SignedURLTTL) * time.Second
}

// InviteLifetime returns the invitation TTL as a duration
func (c *PortalConfig) InviteLifetime() time.Duration {
	return time.Duration(c.InviteTTL) * time.Second
}

// WordPressEnabled reports whether a WordPress site is configured
func (c *PortalConfig) WordPressEnabled() bool {
	return c.WordPressURL != ""
}

// MailEnabled reports whether the transactional-email API is configured
func (c *PortalConfig) MailEnabled() bool {
	return c.MailAPIURL != ""
}

// Validate validates the configuration
func (c *PortalConfig) Validate() error {
	if c.AccessTokenTTL <= 0 || c.SignedURLTTL <= 0 || c.InviteTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max_upload_bytes value: %d", c.MaxUploadBytes)
	}
	if c.WordPressPerPage <= 0 || c.WordPressPerPage > 100 {
		return fmt.Errorf("invalid wordpress_per_page value: %d (1-100)", c.WordPressPerPage)
	}
	if c.WordPressURL != "" {
		if err := validateHTTPURL(c.WordPressURL); err != nil {
			return fmt.Errorf("invalid wordpress_url value: %w", err)
		}
	}
	if c.MailAPIURL != "" {
		if err := validateHTTPURL(c.MailAPIURL); err != nil {
			return fmt.Errorf("invalid mail_api_url value: %w", err)
		}
	}
	if err := validateHTTPURL(c.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid public_base_url value: %w", err)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.LogLevel == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	return nil
}

// ValidateServing additionally requires what the HTTP server needs
func (c *PortalConfig) ValidateServing() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("signing_key must be at least 32 characters")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

func redacted(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}

// Attributes returns all configuration attributes with their values and sources
func (c *PortalConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "signing_key", Value: redacted(c.SigningKey), Source: c.Source("signing_key")},
		{Name: "access_token_ttl", Value: strconv.Itoa(c.AccessTokenTTL), Source: c.Source("access_token_ttl")},
		{Name: "signed_url_ttl", Value: strconv.Itoa(c.SignedURLTTL), Source: c.Source("signed_url_ttl")},
		{Name: "invite_ttl", Value: strconv.Itoa(c.InviteTTL), Source: c.Source("invite_ttl")},
		{Name: "storage_root", Value: c.StorageRoot, Source: c.Source("storage_root")},
		{Name: "max_upload_bytes", Value: strconv.FormatInt(c.MaxUploadBytes, 10), Source: c.Source("max_upload_bytes")},
		{Name: "public_base_url", Value: c.PublicBaseURL, Source: c.Source("public_base_url")},
		{Name: "wordpress_url", Value: c.WordPressURL, Source: c.Source("wordpress_url")},
		{Name: "wordpress_user", Value: c.WordPressUser, Source: c.Source("wordpress_user")},
		{Name: "wordpress_app_password", Value: redacted(c.WordPressAppPassword), Source: c.Source("wordpress_app_password")},
		{Name: "wordpress_member_type", Value: c.WordPressMemberType, Source: c.Source("wordpress_member_type")},
		{Name: "wordpress_taxonomies", Value: strings.Join(c.WordPressTaxonomies.All(), ","), Source: c.Source("wordpress_taxonomies")},
		{Name: "wordpress_per_page", Value: strconv.Itoa(c.WordPressPerPage), Source: c.Source("wordpress_per_page")},
		{Name: "mail_api_url", Value: c.MailAPIURL, Source: c.Source("mail_api_url")},
		{Name: "mail_api_key", Value: redacted(c.MailAPIKey), Source: c.Source("mail_api_key")},
		{Name: "mail_from", Value: c.MailFrom, Source: c.Source("mail_from")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "log_file", Value: c.LogFile, Source: c.Source("log_file")},
		{Name: "log_json", Value: strconv.FormatBool(c.LogJSON), Source: c.Source("log_json")},
		{Name: "access_log_file", Value: c.AccessLogFile, Source: c.Source("access_log_file")},
		{Name: "cors_origins", Value: strings.Join(c.CORSOrigins, ","), Source: c.Source("cors_origins")},
	}
}

// FormatText returns a text representation of the configuration
func (c *PortalConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *PortalConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
