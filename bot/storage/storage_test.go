package storage

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE users (
	user_id INTEGER PRIMARY KEY,
	difficulty INTEGER NOT NULL DEFAULT 0,
	jlpt INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE quiz_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	kana_reading_correct INTEGER NOT NULL DEFAULT 0,
	kana_reading_total INTEGER NOT NULL DEFAULT 0,
	word_reading_correct INTEGER NOT NULL DEFAULT 0,
	word_reading_total INTEGER NOT NULL DEFAULT 0,
	word_meaning_correct INTEGER NOT NULL DEFAULT 0,
	word_meaning_total INTEGER NOT NULL DEFAULT 0,
	random_correct INTEGER NOT NULL DEFAULT 0,
	random_total INTEGER NOT NULL DEFAULT 0
);
`

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create test schema: %v", err)
	}
	return db
}

func TestUsersExistsCreate(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))

	ok, err := users.Exists(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("user must not exist before Create")
	}

	if err := users.Create(ctx, 42); err != nil {
		t.Fatal(err)
	}

	ok, err = users.Exists(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("user must exist after Create")
	}

	rec, err := users.Get(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if rec.UserID != 42 || rec.Difficulty != 0 || rec.JLPT != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestUsersSetDifficulty(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))
	if err := users.Create(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := users.SetDifficulty(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	rec, err := users.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Difficulty != 2 {
		t.Fatalf("difficulty = %d, want 2", rec.Difficulty)
	}
}

func TestRecordQuizResult(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUsers(db)
	if err := users.Create(ctx, 9); err != nil {
		t.Fatal(err)
	}

	if err := users.RecordQuizResult(ctx, 9, "kana_reading", true); err != nil {
		t.Fatal(err)
	}
	if err := users.RecordQuizResult(ctx, 9, "kana_reading", false); err != nil {
		t.Fatal(err)
	}

	var correct, total int
	if err := db.QueryRow(
		"SELECT kana_reading_correct, kana_reading_total FROM quiz_stats WHERE user_id = 9",
	).Scan(&correct, &total); err != nil {
		t.Fatal(err)
	}
	if correct != 1 || total != 2 {
		t.Fatalf("got correct=%d total=%d, want 1/2", correct, total)
	}

	if err := users.RecordQuizResult(ctx, 9, "bogus", true); err == nil {
		t.Fatal("unknown game must be rejected")
	}
}

func TestMediaCacheIdempotentStore(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMediaCache(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Store(ctx, 100, "file-aaa"); err != nil {
		t.Fatal(err)
	}
	// Duplicate insert is ignored, not an error; first write wins.
	if err := cache.Store(ctx, 100, "file-bbb"); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Lookup(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got != "file-aaa" {
		t.Fatalf("lookup = %q, want first-stored handle", got)
	}
}

func TestMediaCacheLookupMiss(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMediaCache(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	got, err := cache.Lookup(ctx, 555)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("miss must return empty handle, got %q", got)
	}
}
