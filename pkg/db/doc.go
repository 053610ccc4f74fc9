// Package db provides database connection and migration utilities.
//
// Connections use GORM over PostgreSQL. The schema lives in db/migrations at
// the repository root, is embedded into the binary and applied with
// golang-migrate.
//
//	database, err := db.Connect(db.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string (required)
//   - PORTAL_LOG_LEVEL: Set to "debug" for SQL query logging
package db
