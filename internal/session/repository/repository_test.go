package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exercise runs the shared Repository contract against r.
func exercise(t *testing.T, r Repository) {
	t.Helper()
	ctx := context.Background()

	got, err := r.Load(ctx, "client-1")
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if got != nil {
		t.Fatalf("Load missing = %+v, want nil", got)
	}

	if err := r.Save(ctx, "client-1", "tok-a"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = r.Load(ctx, "client-1")
	if err != nil || got == nil {
		t.Fatalf("Load after Save = %v, %v", got, err)
	}
	if got.Token != "tok-a" || got.ClientID != "client-1" {
		t.Errorf("Load = %+v", got)
	}

	if err := r.Save(ctx, "client-1", "tok-b"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _ = r.Load(ctx, "client-1")
	if got == nil || got.Token != "tok-b" {
		t.Errorf("Load after overwrite = %+v, want tok-b", got)
	}

	if other, _ := r.Load(ctx, "client-2"); other != nil {
		t.Errorf("client-2 sees %+v", other)
	}

	if err := r.Remove(ctx, "client-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, _ := r.Load(ctx, "client-1"); got != nil {
		t.Errorf("Load after Remove = %+v, want nil", got)
	}
	if err := r.Remove(ctx, "client-1"); err != nil {
		t.Errorf("Remove missing: %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	exercise(t, NewMemoryRepository(time.Hour))
}

func TestMemoryRepository_Expiry(t *testing.T) {
	r := NewMemoryRepository(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.nowF = func() time.Time { return now }
	ctx := context.Background()
	if err := r.Save(ctx, "c", "t"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(59 * time.Second)
	if got, _ := r.Load(ctx, "c"); got == nil {
		t.Fatal("token should still be valid")
	}
	now = now.Add(time.Second)
	if got, _ := r.Load(ctx, "c"); got != nil {
		t.Errorf("expired token returned: %+v", got)
	}
	if _, ok := r.m["c"]; ok {
		t.Error("expired entry should be evicted")
	}
}

func TestMemoryRepository_NoTTL(t *testing.T) {
	r := NewMemoryRepository(0)
	ctx := context.Background()
	_ = r.Save(ctx, "c", "t")
	got, _ := r.Load(ctx, "c")
	if got == nil || !got.ExpiresAt.IsZero() {
		t.Errorf("Load = %+v, want token without expiry", got)
	}
}

func TestSQLiteRepository(t *testing.T) {
	r, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "sessions.db"), time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer r.Close()
	exercise(t, r)
}

func TestSQLiteRepository_Expiry(t *testing.T) {
	r, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"), time.Minute)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer r.Close()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.nowF = func() time.Time { return now }
	ctx := context.Background()
	if err := r.Save(ctx, "c", "t"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	got, err := r.Load(ctx, "c")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("expired token returned: %+v", got)
	}
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	r, err := OpenSQLite(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Save(context.Background(), "c", "persisted"); err != nil {
		t.Fatal(err)
	}
	r.Close()

	r2, err := OpenSQLite(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	got, err := r2.Load(context.Background(), "c")
	if err != nil || got == nil || got.Token != "persisted" {
		t.Errorf("Load after reopen = %+v, %v", got, err)
	}
}

// Postgres and Redis run only against real servers.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := openPostgresForTest(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	exercise(t, NewPostgresRepository(db, time.Hour))
}

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := OpenRedis(addr, "", 0)
	defer rdb.Close()
	r := NewRedisRepository(rdb, time.Hour)
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	exercise(t, r)
}

func TestOpenRedis_EmptyAddr(t *testing.T) {
	if OpenRedis("", "", 0) != nil {
		t.Error("OpenRedis with empty addr should return nil")
	}
}
