// Package db holds the SQL migrations that own the portal schema.
package db

import "embed"

// Migrations contains db/migrations/*.sql for golang-migrate's iofs source.
//
//go:embed migrations/*.sql
var Migrations embed.FS
