package gorm

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/server/store"
)

const validID = "9b2d6c1e-5a4f-4e3d-8c2b-1a0f9e8d7c6b"

// Malformed ids never reach PostgreSQL, where the uuid columns would reject them with 22P02.
func TestMalformedIDsAreNotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 mockDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	profiles := NewProfilesStore(db)
	documents := NewDocumentsStore(db)
	workshops := NewWorkshopsStore(db)

	tests := []struct {
		name string
		call func() error
	}{
		{"profile get", func() error { _, err := profiles.Get("abc"); return err }},
		{"profile update", func() error { _, err := profiles.Update("abc", store.ProfileUpdate{}); return err }},
		{"profile password", func() error { return profiles.SetPassword("abc", "hash") }},
		{"profile delete", func() error { return profiles.Delete("1 OR 1=1") }},
		{"document get", func() error { _, err := documents.Get("abc"); return err }},
		{"document update", func() error { _, err := documents.Update("abc", store.DocumentUpdate{}); return err }},
		{"document delete", func() error { _, err := documents.Delete(""); return err }},
		{"workshop get", func() error { _, err := workshops.Get("abc"); return err }},
		{"workshop update", func() error { _, err := workshops.Update("abc", store.WorkshopUpdate{}); return err }},
		{"workshop delete", func() error { _, err := workshops.Delete("abc"); return err }},
		{"workshop files", func() error { _, err := workshops.ListFiles("abc"); return err }},
		{"workshop file", func() error { _, err := workshops.GetFile(validID, "abc"); return err }},
		{"workshop file delete", func() error { _, err := workshops.DeleteFile("abc", validID); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), store.ErrNotFound)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIDs(t *testing.T) {
	assert.NoError(t, checkIDs(validID))
	assert.NoError(t, checkIDs(validID, "00000000-0000-0000-0000-000000000000"))
	assert.ErrorIs(t, checkIDs("not-a-uuid"), store.ErrNotFound)
	assert.ErrorIs(t, checkIDs(validID, "abc"), store.ErrNotFound)
}
