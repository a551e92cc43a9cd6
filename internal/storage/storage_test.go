package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := RunMigrations(path, "../../migrations"); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSpeechCacheRoundTrip verifies storing and retrieving synthesis
// audio by text hash.
func TestSpeechCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.PutAudio(ctx, "hash-1", "good rep", []byte("mp3-bytes")); err != nil {
		t.Fatalf("put: %v", err)
	}

	audio, ok, err := db.GetAudio(ctx, "hash-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
}

// TestSpeechCacheMiss verifies the miss path returns ok=false without an
// error.
func TestSpeechCacheMiss(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.GetAudio(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

// TestSpeechCacheReplace verifies that re-storing under the same hash
// replaces the previous audio.
func TestSpeechCacheReplace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.PutAudio(ctx, "hash-1", "good rep", []byte("old")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.PutAudio(ctx, "hash-1", "good rep", []byte("new")); err != nil {
		t.Fatalf("replace: %v", err)
	}

	audio, ok, err := db.GetAudio(ctx, "hash-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(audio) != "new" {
		t.Errorf("audio = %q, want replacement", audio)
	}
}

// TestMigrationsIdempotent verifies that applying migrations twice is a
// no-op.
func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := RunMigrations(path, "../../migrations"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path, "../../migrations"); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
