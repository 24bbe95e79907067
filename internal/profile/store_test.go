package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frs/profile-service/internal/db"
	"frs/profile-service/internal/model"
	"frs/profile-service/internal/profile"
)

func newSQLiteStore(t *testing.T) *profile.SQLiteStore {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return profile.NewSQLiteStore(conn)
}

func mustCreate(t *testing.T, s profile.Store, p model.Profile) int64 {
	t.Helper()
	p.IsActive = true
	id, err := s.Create(context.Background(), &p)
	require.NoError(t, err)
	return id
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	key := "headshots/a.jpg"
	id := mustCreate(t, s, model.Profile{
		Email:        "jane@x.com",
		FirstName:    "Jane",
		LastName:     "Doe",
		NMLS:         "111",
		ServiceAreas: []string{"CA", "NV"},
		HeadshotKey:  &key,
	})

	p, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", p.Email)
	assert.Equal(t, "Jane Doe", p.FullName())
	assert.Equal(t, []string{"CA", "NV"}, p.ServiceAreas)
	assert.Equal(t, []string{}, p.Languages)
	require.NotNil(t, p.HeadshotKey)
	assert.Equal(t, key, *p.HeadshotKey)
	assert.Nil(t, p.UserID)
	assert.True(t, p.IsActive)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = s.FindByID(ctx, id+100)
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestSQLiteStore_ListOrdersByID(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	a := mustCreate(t, s, model.Profile{FirstName: "A"})
	b := mustCreate(t, s, model.Profile{FirstName: "B"})
	inactive := false
	ok, err := s.Update(ctx, a, model.Patch{IsActive: &inactive})
	require.NoError(t, err)
	require.True(t, ok)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0].ID)
	assert.False(t, all[0].IsActive)
}

func TestSQLiteStore_UpdateOnlyTouchesPatchedFields(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	id := mustCreate(t, s, model.Profile{FirstName: "Jane", Company: "Old Co", Languages: []string{"English"}})

	patch := model.NewPatch()
	patch.Strings[model.FieldCompany] = "New Co"
	patch.Strings["not_a_column"] = "ignored"
	patch.Lists[model.FieldLanguages] = []string{"English", "Spanish"}
	ok, err := s.Update(ctx, id, patch)
	require.NoError(t, err)
	require.True(t, ok)

	p, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "New Co", p.Company)
	assert.Equal(t, []string{"English", "Spanish"}, p.Languages)

	ok, err = s.Update(ctx, id+100, patch)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ActiveEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	first := mustCreate(t, s, model.Profile{Email: "dup@x.com"})

	_, err := s.Create(ctx, &model.Profile{Email: "dup@x.com", IsActive: true})
	assert.ErrorIs(t, err, profile.ErrDuplicateEmail)

	// Two profiles without an email never collide.
	mustCreate(t, s, model.Profile{FirstName: "No"})
	mustCreate(t, s, model.Profile{FirstName: "Email"})

	// Deactivating frees the address.
	inactive := false
	_, err = s.Update(ctx, first, model.Patch{IsActive: &inactive})
	require.NoError(t, err)
	mustCreate(t, s, model.Profile{Email: "dup@x.com"})
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	id := mustCreate(t, s, model.Profile{FirstName: "Gone"})

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
