// Package dict provides lookups over the read-only JMdict/Tatoeba SQLite
// dictionary. Lookups are exact or prefix matches, no ranking or scoring.
//
// Expected tables:
//
//	entries(id, jlpt)
//	kanji(entry_id, kanji)
//	readings(entry_id, reading)
//	glosses(entry_id, gloss)
//	examples(id, sentence)
//	translations(example_id, lang, text)
//	audio(id, example_id, author, license, url)
//	counters(entry_id)
package dict

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store answers dictionary queries. A nil Store is allowed and makes every
// lookup report no results, so the bot degrades gracefully when no
// dictionary file is configured.
type Store struct {
	db *sqlx.DB
}

// New wraps the dictionary database. A nil db yields a nil Store.
func New(db *sqlx.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// SearchGlossary returns entry IDs whose gloss starts with the query.
func (s *Store) SearchGlossary(ctx context.Context, query string) ([]int64, error) {
	if s == nil || query == "" {
		return nil, nil
	}
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT entry_id FROM glosses WHERE gloss = ? OR gloss LIKE ? LIMIT 50`,
		query, query+"%")
	if err != nil {
		return nil, fmt.Errorf("dict: search glossary: %w", err)
	}
	return ids, nil
}

// SearchJapanese returns entry IDs whose writing or reading matches the
// query exactly.
func (s *Store) SearchJapanese(ctx context.Context, query string) ([]int64, error) {
	if s == nil || query == "" {
		return nil, nil
	}
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT entry_id FROM kanji WHERE kanji = ?
		 UNION
		 SELECT entry_id FROM readings WHERE reading = ?
		 LIMIT 50`,
		query, query)
	if err != nil {
		return nil, fmt.Errorf("dict: search japanese: %w", err)
	}
	return ids, nil
}

// SearchExamples returns example IDs whose sentence contains the query.
func (s *Store) SearchExamples(ctx context.Context, query string) ([]int64, error) {
	if s == nil || query == "" {
		return nil, nil
	}
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT id FROM examples WHERE sentence LIKE ? LIMIT 50`,
		"%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("dict: search examples: %w", err)
	}
	return ids, nil
}

// Writings lists kanji writings for an entry, primary form first.
func (s *Store) Writings(ctx context.Context, entryID int64) ([]string, error) {
	return s.column(ctx, `SELECT kanji FROM kanji WHERE entry_id = ? ORDER BY rowid`, entryID)
}

// Readings lists kana readings for an entry, primary form first.
func (s *Store) Readings(ctx context.Context, entryID int64) ([]string, error) {
	return s.column(ctx, `SELECT reading FROM readings WHERE entry_id = ? ORDER BY rowid`, entryID)
}

// Glosses lists translations for an entry, primary sense first.
func (s *Store) Glosses(ctx context.Context, entryID int64) ([]string, error) {
	return s.column(ctx, `SELECT gloss FROM glosses WHERE entry_id = ? ORDER BY rowid`, entryID)
}

func (s *Store) column(ctx context.Context, query string, entryID int64) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var out []string
	if err := s.db.SelectContext(ctx, &out, query, entryID); err != nil {
		return nil, fmt.Errorf("dict: entry %d: %w", entryID, err)
	}
	return out, nil
}
