package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/idlecore/engine/save"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saves.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestStore_PutGetOverwrite(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "autosave", []byte(`{"v":1}`)))
	require.NoError(t, store.Put(ctx, "autosave", []byte(`{"v":2}`)))

	got, err := store.Get(ctx, "autosave")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	_, err = store.Get(ctx, "other")
	assert.ErrorIs(t, err, save.ErrNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for _, slot := range []string{"b", "a", "c"} {
		require.NoError(t, store.Put(ctx, slot, []byte(`{}`)))
	}
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, store.Delete(ctx, "b"))
	assert.ErrorIs(t, store.Delete(ctx, "b"), save.ErrNotFound)

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestOpen_ReopenKeepsDataAndMigrationsOnce(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "keep", []byte(`{}`)))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Get(ctx, "keep")
	require.NoError(t, err)

	var applied int
	require.NoError(t, reopened.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestExtractUp(t *testing.T) {
	assert.Equal(t, "\nCREATE;\n", extractUp("-- +migrate Up\nCREATE;\n-- +migrate Down\nDROP;"))
	assert.Equal(t, "RAW", extractUp("RAW"))
}
