package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetAudio looks up cached synthesis audio by text hash. The second return
// reports whether the entry exists.
func (db *DB) GetAudio(ctx context.Context, textHash string) ([]byte, bool, error) {
	var audio []byte
	err := db.sql.QueryRowContext(ctx,
		`SELECT audio FROM speech_cache WHERE text_hash = ?`, textHash).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying speech cache: %w", err)
	}
	return audio, true, nil
}

// PutAudio stores synthesis audio under its text hash, replacing any
// previous entry.
func (db *DB) PutAudio(ctx context.Context, textHash, text string, audio []byte) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO speech_cache (text_hash, text, audio, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (text_hash) DO UPDATE SET audio = excluded.audio, created_at = excluded.created_at`,
		textHash, text, audio, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing speech cache entry: %w", err)
	}
	return nil
}
