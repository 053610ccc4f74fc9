package gorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
)

func confrere(wpID int64, name, province string, states ...string) model.ConfrereInFormation {
	primary := ""
	if len(states) > 0 {
		primary = states[0]
	}
	return model.ConfrereInFormation{
		WPID:            wpID,
		Name:            name,
		ProvinceSlug:    province,
		Positions:       []string{"Étudiant"},
		FormationStates: states,
		FormationState:  primary,
		SyncedAt:        time.Now().UTC(),
	}
}

func TestFormationStore_SettingsDefaultAndSave(t *testing.T) {
	s := NewFormationStore(newTestDB(t))

	settings, err := s.Settings()
	require.NoError(t, err)
	assert.Empty(t, settings.IncludedStates)
	assert.Empty(t, settings.IncludedProvinces)

	saved, err := s.SaveSettings(store.SettingsUpdate{
		IncludedStates: []string{"novice", "postulant"},
		PruneMissing:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, saved.IncludedProvinces)

	settings, err = s.Settings()
	require.NoError(t, err)
	assert.Equal(t, []string{"novice", "postulant"}, settings.IncludedStates)
	assert.True(t, settings.PruneMissing)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkSynced(at))
	settings, err = s.Settings()
	require.NoError(t, err)
	require.NotNil(t, settings.LastSyncedAt)
	assert.True(t, at.Equal(*settings.LastSyncedAt))
}

func TestFormationStore_UpsertIsIdempotentOnWPID(t *testing.T) {
	s := NewFormationStore(newTestDB(t))

	n, err := s.UpsertConfreres([]model.ConfrereInFormation{
		confrere(1, "Jean", "france", "novice"),
		confrere(2, "Pierre", "italia", "postulant"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.UpsertConfreres([]model.ConfrereInFormation{confrere(1, "Jean-Marie", "france", "student")})
	require.NoError(t, err)

	rows, err := s.ListConfreres(store.ConfrereFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jean-Marie", rows[0].Name)
	assert.Equal(t, []string{"student"}, rows[0].FormationStates)

	got, err := s.GetConfrere(2)
	require.NoError(t, err)
	assert.Equal(t, "Pierre", got.Name)

	_, err = s.GetConfrere(99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFormationStore_ListConfreresFilters(t *testing.T) {
	s := NewFormationStore(newTestDB(t))
	_, err := s.UpsertConfreres([]model.ConfrereInFormation{
		confrere(1, "Jean", "france", "novice"),
		confrere(2, "Pierre", "italia", "postulant", "novice"),
		confrere(3, "Paul", "italia", "student"),
	})
	require.NoError(t, err)

	rows, err := s.ListConfreres(store.ConfrereFilter{State: "novice"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.ListConfreres(store.ConfrereFilter{State: "novice", ProvinceSlug: "italia"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].WPID)

	rows, err = s.ListConfreres(store.ConfrereFilter{Query: "PA"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Paul", rows[0].Name)

	rows, err = s.ListConfreres(store.ConfrereFilter{Position: "Étudiant"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFormationStore_Prune(t *testing.T) {
	s := NewFormationStore(newTestDB(t))
	_, err := s.UpsertConfreres([]model.ConfrereInFormation{
		confrere(1, "Jean", "france", "novice"),
		confrere(2, "Pierre", "italia", "novice"),
		confrere(3, "Paul", "italia", "novice"),
	})
	require.NoError(t, err)

	pruned, err := s.PruneConfreres([]int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	pruned, err = s.PruneConfreres(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)
}

func TestFormationStore_Terms(t *testing.T) {
	s := NewFormationStore(newTestDB(t))
	now := time.Now().UTC()

	_, err := s.UpsertTerms([]model.TaxonomyTerm{
		{Taxonomy: "province", WPID: 10, Name: "France", Slug: "france", SyncedAt: now},
		{Taxonomy: "formation_state", WPID: 10, Name: "Novice", Slug: "novice", SyncedAt: now},
	})
	require.NoError(t, err)

	_, err = s.UpsertTerms([]model.TaxonomyTerm{
		{Taxonomy: "province", WPID: 10, Name: "France-Benelux", Slug: "france", Count: 4, SyncedAt: now},
	})
	require.NoError(t, err)

	provinces, err := s.ListTerms("province")
	require.NoError(t, err)
	require.Len(t, provinces, 1)
	assert.Equal(t, "France-Benelux", provinces[0].Name)
	assert.Equal(t, 4, provinces[0].Count)

	all, err := s.ListTerms("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFormationStore_Runs(t *testing.T) {
	s := NewFormationStore(newTestDB(t))

	first, err := s.StartRun("terms", false)
	require.NoError(t, err)
	second, err := s.StartRun("members", true)
	require.NoError(t, err)
	assert.Equal(t, model.SyncRunning, second.Status)

	require.NoError(t, s.FinishRun(second.ID, store.RunResult{Status: model.SyncSucceeded, Fetched: 5, Matched: 3}))
	assert.ErrorIs(t, s.FinishRun(9999, store.RunResult{Status: model.SyncFailed}), store.ErrNotFound)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, model.SyncSucceeded, runs[0].Status)
	assert.Equal(t, 3, runs[0].Matched)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = s.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
