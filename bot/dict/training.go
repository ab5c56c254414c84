package dict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/m3rciful/kotobot/bot/kana"
)

// QuizRound is one four-option quiz question ready to post as a poll.
type QuizRound struct {
	Question string
	Options  []string
	Correct  int
}

const quizOptions = 4

// RandomEntry picks a random entry at the given JLPT level. Zero means the
// level has no entries.
func (s *Store) RandomEntry(ctx context.Context, jlpt int) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var id int64
	err := s.db.GetContext(ctx, &id,
		`SELECT id FROM entries WHERE jlpt = ? ORDER BY RANDOM() LIMIT 1`, jlpt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dict: random entry: %w", err)
	}
	return id, nil
}

// Word returns the display form of an entry: the primary writing, falling
// back to the primary reading for kana-only words.
func (s *Store) Word(ctx context.Context, entryID int64) (string, error) {
	writings, err := s.Writings(ctx, entryID)
	if err != nil {
		return "", err
	}
	if len(writings) > 0 {
		return writings[0], nil
	}
	readings, err := s.Readings(ctx, entryID)
	if err != nil {
		return "", err
	}
	if len(readings) > 0 {
		return readings[0], nil
	}
	return "", nil
}

// ReadingQuiz builds a round asking for the reading of a random word at the
// given JLPT level, with distractor readings drawn from other entries.
func (s *Store) ReadingQuiz(ctx context.Context, jlpt int) (*QuizRound, error) {
	return s.quizRound(ctx, jlpt, s.Readings,
		`SELECT DISTINCT reading FROM readings WHERE entry_id != ? ORDER BY RANDOM() LIMIT ?`)
}

// MeaningQuiz builds a round asking for the meaning of a random word at the
// given JLPT level.
func (s *Store) MeaningQuiz(ctx context.Context, jlpt int) (*QuizRound, error) {
	return s.quizRound(ctx, jlpt, s.Glosses,
		`SELECT DISTINCT gloss FROM glosses WHERE entry_id != ? ORDER BY RANDOM() LIMIT ?`)
}

func (s *Store) quizRound(
	ctx context.Context,
	jlpt int,
	correctOf func(context.Context, int64) ([]string, error),
	distractorQuery string,
) (*QuizRound, error) {
	if s == nil {
		return nil, nil
	}
	entryID, err := s.RandomEntry(ctx, jlpt)
	if err != nil || entryID == 0 {
		return nil, err
	}
	word, err := s.Word(ctx, entryID)
	if err != nil || word == "" {
		return nil, err
	}
	answers, err := correctOf(ctx, entryID)
	if err != nil || len(answers) == 0 {
		return nil, err
	}

	var distractors []string
	err = s.db.SelectContext(ctx, &distractors, distractorQuery, entryID, quizOptions-1)
	if err != nil {
		return nil, fmt.Errorf("dict: quiz distractors: %w", err)
	}
	if len(distractors) < quizOptions-1 {
		return nil, nil
	}

	options := append([]string{answers[0]}, distractors...)
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	correct := matchingIndex(options, answers)
	if correct < 0 {
		return nil, nil
	}
	return &QuizRound{Question: word, Options: options, Correct: correct}, nil
}

// CounterQuiz builds a round asking for the meaning of a counter suffix.
// The question shows the counter after 一.
func (s *Store) CounterQuiz(ctx context.Context) (*QuizRound, error) {
	if s == nil {
		return nil, nil
	}
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT entry_id FROM counters ORDER BY RANDOM() LIMIT ?`, quizOptions)
	if err != nil {
		return nil, fmt.Errorf("dict: counter quiz: %w", err)
	}
	if len(ids) < quizOptions {
		return nil, nil
	}

	kanjis, err := s.Writings(ctx, ids[0])
	if err != nil || len(kanjis) == 0 {
		return nil, err
	}
	options := make([]string, 0, quizOptions)
	for _, id := range ids {
		glosses, err := s.Glosses(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(glosses) == 0 {
			return nil, nil
		}
		options = append(options, glosses[0])
	}

	answer := options[0]
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	correct := matchingIndex(options, []string{answer})
	if correct < 0 {
		return nil, nil
	}
	return &QuizRound{
		Question: kana.NumberToKanji(1) + kanjis[0],
		Options:  options,
		Correct:  correct,
	}, nil
}

func matchingIndex(options, answers []string) int {
	for _, a := range answers {
		for i, o := range options {
			if o == a {
				return i
			}
		}
	}
	return -1
}

// RandomKanaWord builds a nonsense kana string of the given syllable count
// for the kana-reading game. katakanaRatio is the probability the whole word
// comes out in katakana.
func RandomKanaWord(syllables int, katakanaRatio float64) string {
	if syllables <= 0 {
		return ""
	}
	inventory := kana.Syllables()
	var b strings.Builder
	for i := 0; i < syllables; i++ {
		b.WriteString(inventory[rand.Intn(len(inventory))])
	}
	word := b.String()
	if rand.Float64() < katakanaRatio {
		return kana.ToKatakana(word)
	}
	return word
}

// RandomNumber picks a number for the numerals game within the range the
// kanji spelling tables cover.
func RandomNumber() int {
	return 1 + rand.Intn(99999)
}
