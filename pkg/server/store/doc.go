// Package store provides storage abstractions for the formation portal.
//
// This package defines interfaces for database operations, allowing the
// server endpoints and the sync pipeline to be decoupled from GORM.
// Implementations live in the gorm subpackage.
//
// # Available Stores
//
//   - ProfilesStore: portal accounts and password hashes
//   - DocumentsStore: document metadata and visibility filtering
//   - WorkshopsStore: workshops and their attached files
//   - FormationStore: sync settings, the confrere directory, taxonomy terms and sync runs
//   - HealthStore: database connectivity
//
// # Usage
//
//	profiles := gormstore.NewProfilesStore(db)
//	profile, err := profiles.GetByEmail("frere.jean@example.org")
//	if err != nil {
//	    if errors.Is(err, store.ErrNotFound) {
//	        // Handle not found
//	    }
//	}
package store
