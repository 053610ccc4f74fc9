// Command portalctl runs and administers the formation portal.
//
// The portal serves a private document library, the workshop calendar and a
// directory of confreres in formation synchronized from the congregation's
// WordPress site.
//
// # Quick Start
//
//	# Generate the key signing tokens and download links
//	export PORTAL_SIGNING_KEY="$(portalctl signing-key generate)"
//
//	# Create the schema
//	portalctl db migrate
//
//	# Create the first administrator
//	portalctl user create admin@example.org --role admin
//
//	# Start the server
//	portalctl server
//
//	# Refresh the formation directory
//	portalctl sync all
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - AUDIT_DATABASE_URL: optional database receiving audit messages
//   - PORTAL_CONFIG_PATH: directory holding portal.yml
//   - PORTAL_SIGNING_KEY: HMAC key for access tokens and signed URLs
//   - PORTAL_LOG_LEVEL: debug, info, warn or error
//   - PORT, BIND_ADDRESS: listener of the server command
//
// Every attribute of portal.yml can be overridden with a PORTAL_ variable;
// see portalctl configuration show.
package main
