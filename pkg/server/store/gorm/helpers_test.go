package gorm

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/model"
)

// newTestDB opens an isolated in-memory SQLite database with the portal schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Profile{},
		&model.Document{},
		&model.Workshop{},
		&model.WorkshopFile{},
		&model.FormationSettings{},
		&model.ConfrereInFormation{},
		&model.TaxonomyTerm{},
		&model.SyncRun{},
	))
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX profiles_email_key ON profiles (email)").Error)

	return db
}

func ptr[T any](v T) *T {
	return &v
}
