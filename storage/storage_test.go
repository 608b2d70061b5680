package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/idlecore/config"
	"github.com/nathoo/idlecore/engine/save"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func exercise(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "slot1", []byte(`{"version":1}`)))
	got, err := b.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))
	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"slot1"}, names)
	require.NoError(t, b.Delete(ctx, "slot1"))
	_, err = b.Get(ctx, "slot1")
	assert.ErrorIs(t, err, save.ErrNotFound)
	require.NoError(t, b.Close())
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), config.Config{SaveBackend: config.BackendMemory}, quietLogger())
	require.NoError(t, err)
	exercise(t, b)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Config{
		SaveBackend: config.BackendSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "saves.db"),
	}
	b, err := Open(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	exercise(t, b)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{SaveBackend: config.BackendRedis, RedisAddr: mr.Addr()}
	b, err := Open(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	exercise(t, b)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Config{SaveBackend: "tape"}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown save backend")
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := Open(context.Background(), config.Config{SaveBackend: config.BackendRedis, RedisAddr: addr}, quietLogger())
	require.Error(t, err)
}
