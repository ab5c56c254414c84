package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/kotobot/core/logger"
)

const mediaSchema = `
CREATE TABLE IF NOT EXISTS audio_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	audio_id TEXT UNIQUE,
	content_id INTEGER UNIQUE
);
`

// MediaCache maps remote content IDs (Tatoeba sentence numbers) to the
// Telegram file IDs assigned on first upload, so a sentence's audio is
// uploaded at most once.
type MediaCache struct {
	db *sqlx.DB
}

// NewMediaCache wraps the cache store and ensures its schema.
func NewMediaCache(db *sqlx.DB) (*MediaCache, error) {
	if _, err := db.Exec(mediaSchema); err != nil {
		return nil, fmt.Errorf("media cache schema: %w", err)
	}
	return &MediaCache{db: db}, nil
}

// Store records the platform handle for a content ID. The insert is
// idempotent: a duplicate content ID is silently ignored, first write wins.
func (m *MediaCache) Store(ctx context.Context, contentID int64, audioID string) error {
	_, err := m.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO audio_cache (audio_id, content_id) VALUES (?, ?)",
		audioID, contentID)
	if err != nil {
		return fmt.Errorf("media cache store: %w", err)
	}
	logger.Debug(ctx, "cache", "media.store",
		slog.Int64("content_id", contentID),
	)
	return nil
}

// Lookup returns the cached handle for a content ID, or "" when absent.
func (m *MediaCache) Lookup(ctx context.Context, contentID int64) (string, error) {
	var audioID string
	err := m.db.GetContext(ctx, &audioID,
		"SELECT audio_id FROM audio_cache WHERE content_id = ?", contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("media cache lookup: %w", err)
	}
	return audioID, nil
}
