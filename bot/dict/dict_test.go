package dict

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE entries (id INTEGER PRIMARY KEY, jlpt INTEGER NOT NULL);
CREATE TABLE kanji (entry_id INTEGER NOT NULL, kanji TEXT NOT NULL);
CREATE TABLE readings (entry_id INTEGER NOT NULL, reading TEXT NOT NULL);
CREATE TABLE glosses (entry_id INTEGER NOT NULL, gloss TEXT NOT NULL);
CREATE TABLE examples (id INTEGER PRIMARY KEY, sentence TEXT NOT NULL);
CREATE TABLE translations (example_id INTEGER NOT NULL, lang TEXT NOT NULL, text TEXT NOT NULL);
CREATE TABLE audio (id INTEGER PRIMARY KEY, example_id INTEGER NOT NULL, author TEXT, license TEXT, url TEXT);
CREATE TABLE counters (entry_id INTEGER NOT NULL);
`

func openTestDict(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatal(err)
	}
	return New(db)
}

func seedEntry(t *testing.T, s *Store, id int64, jlpt int, kanji, reading, gloss string) {
	t.Helper()
	mustExec(t, s, `INSERT INTO entries (id, jlpt) VALUES (?, ?)`, id, jlpt)
	if kanji != "" {
		mustExec(t, s, `INSERT INTO kanji (entry_id, kanji) VALUES (?, ?)`, id, kanji)
	}
	mustExec(t, s, `INSERT INTO readings (entry_id, reading) VALUES (?, ?)`, id, reading)
	mustExec(t, s, `INSERT INTO glosses (entry_id, gloss) VALUES (?, ?)`, id, gloss)
}

func mustExec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	if _, err := s.db.Exec(query, args...); err != nil {
		t.Fatal(err)
	}
}

func TestSearchGlossaryPrefix(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "猫", "ねこ", "cat")
	seedEntry(t, s, 2, 5, "牛", "うし", "cattle")
	seedEntry(t, s, 3, 5, "犬", "いぬ", "dog")

	ids, err := s.SearchGlossary(context.Background(), "cat")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %v, want entries 1 and 2", ids)
	}
}

func TestSearchJapaneseWritingAndReading(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "猫", "ねこ", "cat")

	for _, q := range []string{"猫", "ねこ"} {
		ids, err := s.SearchJapanese(context.Background(), q)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 || ids[0] != 1 {
			t.Fatalf("query %q: got %v, want [1]", q, ids)
		}
	}
}

func TestEntryLookups(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "猫", "ねこ", "cat")
	mustExec(t, s, `INSERT INTO glosses (entry_id, gloss) VALUES (1, 'kitty')`)

	glosses, err := s.Glosses(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(glosses) != 2 || glosses[0] != "cat" {
		t.Fatalf("glosses = %v", glosses)
	}

	word, err := s.Word(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if word != "猫" {
		t.Fatalf("word = %q, want primary writing", word)
	}
}

func TestWordFallsBackToReading(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "", "すし", "sushi")

	word, err := s.Word(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if word != "すし" {
		t.Fatalf("word = %q, want reading fallback", word)
	}
}

func TestExamplesAndTranslations(t *testing.T) {
	s := openTestDict(t)
	mustExec(t, s, `INSERT INTO examples (id, sentence) VALUES (10, '猫が好きです')`)
	mustExec(t, s, `INSERT INTO translations (example_id, lang, text) VALUES (10, 'eng', 'I like cats.')`)

	ids, err := s.SearchExamples(context.Background(), "猫")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 10 {
		t.Fatalf("ids = %v", ids)
	}

	sentence, err := s.Example(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if sentence != "猫が好きです" {
		t.Fatalf("sentence = %q", sentence)
	}

	eng, err := s.Translations(context.Background(), 10, "eng")
	if err != nil {
		t.Fatal(err)
	}
	if len(eng) != 1 || eng[0] != "I like cats." {
		t.Fatalf("eng = %v", eng)
	}
	rus, err := s.Translations(context.Background(), 10, "rus")
	if err != nil {
		t.Fatal(err)
	}
	if len(rus) != 0 {
		t.Fatalf("rus = %v, want none", rus)
	}
}

func TestAudioLookup(t *testing.T) {
	s := openTestDict(t)
	mustExec(t, s, `INSERT INTO examples (id, sentence) VALUES (10, '...')`)
	mustExec(t, s, `INSERT INTO audio (id, example_id, author, license, url) VALUES (7, 10, 'someone', 'CC BY 4.0', 'https://audio.example/7.mp3')`)

	a, err := s.AudioForExample(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.ID != 7 || a.Author != "someone" {
		t.Fatalf("audio = %+v", a)
	}

	none, err := s.AudioForExample(context.Background(), 99)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("audio = %+v, want nil", none)
	}

	id, err := s.RandomAudioExample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != 10 {
		t.Fatalf("random audio example = %d, want 10", id)
	}
}

func TestReadingQuiz(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "猫", "ねこ", "cat")
	seedEntry(t, s, 2, 4, "犬", "いぬ", "dog")
	seedEntry(t, s, 3, 4, "牛", "うし", "cow")
	seedEntry(t, s, 4, 4, "馬", "うま", "horse")

	round, err := s.ReadingQuiz(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if round == nil {
		t.Fatal("no round built")
	}
	if round.Question != "猫" {
		t.Fatalf("question = %q", round.Question)
	}
	if len(round.Options) != 4 {
		t.Fatalf("options = %v", round.Options)
	}
	if round.Options[round.Correct] != "ねこ" {
		t.Fatalf("correct option = %q", round.Options[round.Correct])
	}
}

func TestQuizNeedsEnoughDistractors(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "猫", "ねこ", "cat")

	round, err := s.MeaningQuiz(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if round != nil {
		t.Fatalf("round = %+v, want nil with too few entries", round)
	}
}

func TestCounterQuiz(t *testing.T) {
	s := openTestDict(t)
	seedEntry(t, s, 1, 5, "匹", "ひき", "counter for small animals")
	seedEntry(t, s, 2, 5, "本", "ほん", "counter for long objects")
	seedEntry(t, s, 3, 5, "枚", "まい", "counter for flat objects")
	seedEntry(t, s, 4, 5, "冊", "さつ", "counter for books")
	for id := int64(1); id <= 4; id++ {
		mustExec(t, s, `INSERT INTO counters (entry_id) VALUES (?)`, id)
	}

	round, err := s.CounterQuiz(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if round == nil {
		t.Fatal("no round built")
	}
	if len(round.Options) != 4 {
		t.Fatalf("options = %v", round.Options)
	}
	if round.Correct < 0 || round.Correct >= len(round.Options) {
		t.Fatalf("correct index out of range: %d", round.Correct)
	}
}

func TestNilStoreIsQuiet(t *testing.T) {
	var s *Store
	ids, err := s.SearchGlossary(context.Background(), "cat")
	if err != nil || ids != nil {
		t.Fatalf("nil store: ids=%v err=%v", ids, err)
	}
	round, err := s.ReadingQuiz(context.Background(), 5)
	if err != nil || round != nil {
		t.Fatalf("nil store: round=%v err=%v", round, err)
	}
}

func TestRandomKanaWord(t *testing.T) {
	w := RandomKanaWord(5, 0)
	if w == "" {
		t.Fatal("empty word")
	}
	kw := RandomKanaWord(3, 1)
	if kw == "" {
		t.Fatal("empty katakana word")
	}
}
