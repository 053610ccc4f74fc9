// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// The stores run against PostgreSQL in production. Queries stay portable
// enough to run against SQLite in tests; the one dialect-specific query
// (JSON array containment) switches on the dialector name.
package gorm
