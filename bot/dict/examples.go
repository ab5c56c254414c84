package dict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Audio describes one recorded pronunciation of an example sentence.
type Audio struct {
	ID      int64  `db:"id"`
	Author  string `db:"author"`
	License string `db:"license"`
	URL     string `db:"url"`
}

// Example returns the sentence text for an example ID, empty when absent.
func (s *Store) Example(ctx context.Context, exampleID int64) (string, error) {
	if s == nil {
		return "", nil
	}
	var sentence string
	err := s.db.GetContext(ctx, &sentence,
		`SELECT sentence FROM examples WHERE id = ?`, exampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dict: example %d: %w", exampleID, err)
	}
	return sentence, nil
}

// Translations lists translations of an example in the given language
// ("eng", "rus").
func (s *Store) Translations(ctx context.Context, exampleID int64, lang string) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var out []string
	err := s.db.SelectContext(ctx, &out,
		`SELECT text FROM translations WHERE example_id = ? AND lang = ?`,
		exampleID, lang)
	if err != nil {
		return nil, fmt.Errorf("dict: translations %d/%s: %w", exampleID, lang, err)
	}
	return out, nil
}

// AudioForExample returns the recording attached to an example, or nil when
// the example has none.
func (s *Store) AudioForExample(ctx context.Context, exampleID int64) (*Audio, error) {
	if s == nil {
		return nil, nil
	}
	var a Audio
	err := s.db.GetContext(ctx, &a,
		`SELECT id, author, license, url FROM audio WHERE example_id = ? LIMIT 1`,
		exampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dict: audio for example %d: %w", exampleID, err)
	}
	return &a, nil
}

// RandomAudioExample picks a random example that has a recording. Zero means
// none exist.
func (s *Store) RandomAudioExample(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var id int64
	err := s.db.GetContext(ctx, &id,
		`SELECT example_id FROM audio ORDER BY RANDOM() LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dict: random audio example: %w", err)
	}
	return id, nil
}
