package gorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

var workshopStart = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func TestWorkshopsStore_CreateValidatesSchedule(t *testing.T) {
	s := NewWorkshopsStore(newTestDB(t))

	ends := workshopStart.Add(-time.Hour)
	err := s.Create(&model.Workshop{Title: "Retraite", StartsAt: workshopStart, EndsAt: &ends})
	assert.ErrorIs(t, err, store.ErrInvalid)

	err = s.Create(&model.Workshop{StartsAt: workshopStart})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestWorkshopsStore_ListHidesDrafts(t *testing.T) {
	s := NewWorkshopsStore(newTestDB(t))
	require.NoError(t, s.Create(&model.Workshop{Title: "Draft", StartsAt: workshopStart}))
	require.NoError(t, s.Create(&model.Workshop{Title: "Published", StartsAt: workshopStart.Add(24 * time.Hour), Published: true}))

	published, err := s.List(false)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "Published", published[0].Title)

	all, err := s.List(true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Draft", all[0].Title)
}

func TestWorkshopsStore_Update(t *testing.T) {
	s := NewWorkshopsStore(newTestDB(t))
	ends := workshopStart.Add(2 * time.Hour)
	w := &model.Workshop{Title: "Session", StartsAt: workshopStart, EndsAt: &ends}
	require.NoError(t, s.Create(w))

	updated, err := s.Update(w.ID, store.WorkshopUpdate{Location: ptr("Rome"), Published: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "Rome", updated.Location)
	assert.True(t, updated.Published)

	_, err = s.Update(w.ID, store.WorkshopUpdate{StartsAt: ptr(workshopStart.Add(3 * time.Hour))})
	assert.ErrorIs(t, err, store.ErrInvalid)

	updated, err = s.Update(w.ID, store.WorkshopUpdate{ClearEndsAt: true, StartsAt: ptr(workshopStart.Add(3 * time.Hour))})
	require.NoError(t, err)
	assert.Nil(t, updated.EndsAt)

	_, err = s.Update("missing", store.WorkshopUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkshopsStore_Files(t *testing.T) {
	s := NewWorkshopsStore(newTestDB(t))
	w := &model.Workshop{Title: "Session", StartsAt: workshopStart}
	require.NoError(t, s.Create(w))

	err := s.AddFile(&model.WorkshopFile{WorkshopID: "missing", ObjectKey: "k0", FileName: "a.pdf"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &model.WorkshopFile{WorkshopID: w.ID, ObjectKey: "workshops/1/a.pdf", FileName: "a.pdf"}
	second := &model.WorkshopFile{WorkshopID: w.ID, ObjectKey: "workshops/1/b.pdf", FileName: "b.pdf"}
	require.NoError(t, s.AddFile(first))
	require.NoError(t, s.AddFile(second))

	files, err := s.ListFiles(w.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	got, err := s.GetFile(w.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.FileName)

	_, err = s.GetFile("other", first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.DeleteFile(w.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "workshops/1/a.pdf", deleted.ObjectKey)

	removed, err := s.Delete(w.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, second.ID, removed[0].ID)

	files, err = s.ListFiles(w.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = s.Delete(w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
