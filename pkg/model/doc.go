// Package model defines the database models of the formation portal.
//
// This package contains GORM models that map to the schema owned by
// db/migrations.
//
// # Core Models
//
//   - Profile: portal accounts with a Role (member, editor, admin)
//   - Document: metadata of a file in the documents bucket
//   - Workshop, WorkshopFile: workshops and their attached files
//   - FormationSettings: singleton row steering the directory sync
//   - ConfrereInFormation: denormalized directory rows keyed by WordPress id
//   - TaxonomyTerm: cached WordPress terms (province, position, formation state)
//   - SyncRun: bookkeeping for each sync job
package model
