package gormrepo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/nathoo/idlecore/engine/save"
)

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("IDLECORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IDLECORE_TEST_POSTGRES_DSN is required for integration test")
	}
	return dsn
}

func TestRepo_RoundTrip(t *testing.T) {
	dsn := requireDSN(t)
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	ctx := context.Background()
	repo, err := New(ctx, db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	defer repo.Close()
	_ = db.Exec("DELETE FROM save_slots WHERE slot LIKE 'it-%'").Error

	if err := repo.Put(ctx, "it-one", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, "it-one", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := repo.Get(ctx, "it-one")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("expected overwritten data, got %s", got)
	}

	names, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, n := range names {
		found = found || n == "it-one"
	}
	if !found {
		t.Fatalf("expected it-one in %v", names)
	}

	if err := repo.Delete(ctx, "it-one"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "it-one"); !errors.Is(err, save.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "it-one"); !errors.Is(err, save.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}
