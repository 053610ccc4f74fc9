// Package config provides configuration management for the formation portal.
//
// Configuration is loaded, in increasing precedence, from:
//
//   - built-in defaults
//   - .env and .env.local in the working directory
//   - $PORTAL_CONFIG_PATH/portal.yml (default /etc/formation-portal/portal.yml)
//   - PORTAL_* environment variables
//
// Every attribute remembers where its value came from, which is what
// `portalctl configuration show` prints.
//
// # Key Configuration Options
//
//   - PORTAL_SIGNING_KEY: HMAC secret for access tokens and signed URLs
//   - PORTAL_STORAGE_ROOT: directory holding the object buckets
//   - PORTAL_WORDPRESS_URL, PORTAL_WORDPRESS_USER, PORTAL_WORDPRESS_APP_PASSWORD
//   - PORTAL_MAIL_API_URL, PORTAL_MAIL_API_KEY
//   - PORTAL_LOG_LEVEL: debug, info, warn or error
//   - DATABASE_URL: database connection (read by pkg/db)
package config
