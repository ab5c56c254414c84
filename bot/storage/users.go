// Package storage persists user records, quiz statistics, and the media
// cache across the bot's SQLite stores.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/kotobot/core/logger"
	"log/slog"
)

// UserRecord is one registered user row.
type UserRecord struct {
	UserID     int64 `db:"user_id"`
	Difficulty int   `db:"difficulty"`
	JLPT       int   `db:"jlpt"`
}

// Users is the registry backing the authorization gate. It is a thin shim:
// Create does not check for duplicates, callers consult Exists first.
type Users struct {
	db *sqlx.DB
}

// NewUsers wraps the stats store.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Exists reports whether the user has registered via /start.
func (u *Users) Exists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := u.db.GetContext(ctx, &one, "SELECT 1 FROM users WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return true, nil
}

// Create inserts a fresh user record with default difficulty and JLPT level.
func (u *Users) Create(ctx context.Context, userID int64) error {
	_, err := u.db.ExecContext(ctx,
		"INSERT INTO users (user_id, difficulty, jlpt) VALUES (?, 0, 0)", userID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	logger.Info(ctx, "db", "user.created",
		slog.Int64("user_id", userID),
	)
	return nil
}

// Get loads the user's record.
func (u *Users) Get(ctx context.Context, userID int64) (UserRecord, error) {
	var rec UserRecord
	err := u.db.GetContext(ctx, &rec,
		"SELECT user_id, difficulty, jlpt FROM users WHERE user_id = ?", userID)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

// SetDifficulty updates the user's difficulty setting.
func (u *Users) SetDifficulty(ctx context.Context, userID int64, difficulty int) error {
	_, err := u.db.ExecContext(ctx,
		"UPDATE users SET difficulty = ? WHERE user_id = ?", difficulty, userID)
	if err != nil {
		return fmt.Errorf("set difficulty: %w", err)
	}
	return nil
}

// RecordQuizResult bumps the per-game counters for the user.
func (u *Users) RecordQuizResult(ctx context.Context, userID int64, game string, correct bool) error {
	correctCol, totalCol, ok := quizColumns(game)
	if !ok {
		return fmt.Errorf("record quiz result: unknown game %q", game)
	}
	inc := 0
	if correct {
		inc = 1
	}
	// Column names come from the fixed table above, not user input.
	query := fmt.Sprintf(
		"UPDATE quiz_stats SET %s = %s + ?, %s = %s + 1 WHERE user_id = ?",
		correctCol, correctCol, totalCol, totalCol)
	res, err := u.db.ExecContext(ctx, query, inc, userID)
	if err != nil {
		return fmt.Errorf("record quiz result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = u.db.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO quiz_stats (user_id, %s, %s) VALUES (?, ?, 1)", correctCol, totalCol),
			userID, inc)
		if err != nil {
			return fmt.Errorf("record quiz result: %w", err)
		}
	}
	return nil
}

func quizColumns(game string) (string, string, bool) {
	switch game {
	case "kana_reading":
		return "kana_reading_correct", "kana_reading_total", true
	case "word_reading":
		return "word_reading_correct", "word_reading_total", true
	case "word_meaning":
		return "word_meaning_correct", "word_meaning_total", true
	case "random":
		return "random_correct", "random_total", true
	}
	return "", "", false
}
