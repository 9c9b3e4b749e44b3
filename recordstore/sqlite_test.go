package recordstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesim-lab/salesim/observability"
)

func newSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	store, err := NewSQLiteStore(path, observability.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_AppendAndAll(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, Record{"name": "alpha", "value": "1"}))
	require.NoError(t, store.Append(ctx, Record{"name": "beta", "value": "2"}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0]["name"])
	assert.Equal(t, "beta", all[1]["name"])

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, path := newSQLiteStore(t)

	require.NoError(t, store.AppendMany(ctx, []Record{
		{"name": "alpha"},
		{"name": "beta"},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, observability.NewNullLogger())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0]["name"])

	fields, err := reopened.FieldNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, fields)
}

func TestSQLiteStore_Query(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.AppendMany(ctx, []Record{
		{"conversation_id": "a", "message": "one"},
		{"conversation_id": "b", "message": "two"},
		{"conversation_id": "a", "message": "three"},
	}))

	matches, err := store.Query(ctx, map[string]string{"conversation_id": "a"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "one", matches[0]["message"])
	assert.Equal(t, "three", matches[1]["message"])

	none, err := store.Query(ctx, map[string]string{"conversation_id": "z"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_QueryIgnoresUnknownFilterFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, Record{"name": "alpha"}))

	matches, err := store.Query(ctx, map[string]string{"never_seen": "whatever"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSQLiteStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.AppendMany(ctx, []Record{
		{"name": "alpha"},
		{"name": "beta"},
	}))

	require.NoError(t, store.Update(ctx, 1, Record{"name": "gamma", "extra": "yes"}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gamma", all[1]["name"])
	assert.Equal(t, "yes", all[1]["extra"])

	require.NoError(t, store.Delete(ctx, 0))
	all, err = store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "gamma", all[0]["name"])

	assert.Error(t, store.Update(ctx, 5, Record{"name": "x"}))
	assert.Error(t, store.Delete(ctx, -1))
}

func TestSQLiteStore_SchemaGrowsOverTime(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, Record{"name": "alpha"}))
	require.NoError(t, store.Append(ctx, Record{"name": "beta", "mood": "curious"}))

	fields, err := store.FieldNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "mood"}, fields)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", all[0]["mood"])
	assert.Equal(t, "curious", all[1]["mood"])
}

func TestSQLiteStore_CorruptDatabaseIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database"), 0o644))

	store, err := NewSQLiteStore(path, observability.NewNullLogger())
	require.Error(t, err, "a corrupt database must surface, not degrade to empty")
	assert.Nil(t, store)
}

func TestSQLiteStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, Record{"name": "alpha", "mood": "curious"}))
	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	fields, err := store.FieldNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, fields, "clearing resets the learned schema")

	require.NoError(t, store.Append(ctx, Record{"name": "beta"}))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
