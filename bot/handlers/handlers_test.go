package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/kotobot/bot/dict"
	"github.com/m3rciful/kotobot/bot/fetch"
	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/bot/storage"
	"github.com/m3rciful/kotobot/bot/work"
	tg "github.com/m3rciful/kotobot/core/telegram"
	"github.com/m3rciful/kotobot/core/telegram/middleware"
)

const statsSchema = `
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

const dictSchema = `
CREATE TABLE entries (id INTEGER PRIMARY KEY, jlpt INTEGER NOT NULL);
CREATE TABLE kanji (entry_id INTEGER NOT NULL, kanji TEXT NOT NULL);
CREATE TABLE readings (entry_id INTEGER NOT NULL, reading TEXT NOT NULL);
CREATE TABLE glosses (entry_id INTEGER NOT NULL, gloss TEXT NOT NULL);
CREATE TABLE examples (id INTEGER PRIMARY KEY, sentence TEXT NOT NULL);
CREATE TABLE translations (example_id INTEGER NOT NULL, lang TEXT NOT NULL, text TEXT NOT NULL);
CREATE TABLE audio (id INTEGER PRIMARY KEY, example_id INTEGER NOT NULL, author TEXT, license TEXT, url TEXT);
CREATE TABLE counters (entry_id INTEGER NOT NULL);
`

// fakeMessenger records every outbound message. SendKeyboard pushes the text
// onto the prompts channel so tests can synchronize with pagination waits.
type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	edits     []string
	deletions int
	polls     []string
	audioIDs  []string
	files     []string
	fileID    string
	nextMsgID int
	prompts   chan string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		fileID:  "tg-file-1",
		prompts: make(chan string, 32),
	}
}

func (f *fakeMessenger) record(text string) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}

func (f *fakeMessenger) Send(ctx context.Context, userID int64, text string) error {
	f.record(text)
	return nil
}

func (f *fakeMessenger) SendMarkdown(ctx context.Context, userID int64, text string) error {
	f.record(text)
	return nil
}

func (f *fakeMessenger) SendMarkdownV2(ctx context.Context, userID int64, text string) error {
	f.record(text)
	return nil
}

func (f *fakeMessenger) SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (session.MessageRef, error) {
	f.record(text)
	f.mu.Lock()
	f.nextMsgID++
	ref := session.MessageRef{ChatID: userID, MessageID: f.nextMsgID}
	f.mu.Unlock()
	select {
	case f.prompts <- text:
	default:
	}
	return ref, nil
}

func (f *fakeMessenger) Edit(ctx context.Context, ref session.MessageRef, text string) error {
	f.mu.Lock()
	f.edits = append(f.edits, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) Delete(ctx context.Context, ref session.MessageRef) error {
	f.mu.Lock()
	f.deletions++
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) SendQuizPoll(ctx context.Context, userID int64, question string, options []string, correct int) error {
	f.mu.Lock()
	f.polls = append(f.polls, question)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) SendAudioFile(ctx context.Context, userID int64, path, caption, performer string) (string, error) {
	f.mu.Lock()
	f.files = append(f.files, path)
	f.mu.Unlock()
	return f.fileID, nil
}

func (f *fakeMessenger) SendAudioID(ctx context.Context, userID int64, fileID, caption, performer string) error {
	f.mu.Lock()
	f.audioIDs = append(f.audioIDs, fileID)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) SendTyping(ctx context.Context, userID int64) error { return nil }

func (f *fakeMessenger) SendDice(ctx context.Context, userID int64) error { return nil }

func (f *fakeMessenger) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeMessenger) countPrefix(prefix string) int {
	n := 0
	for _, t := range f.sent() {
		if strings.HasPrefix(t, prefix) {
			n++
		}
	}
	return n
}

type fixture struct {
	h     *Handlers
	msgr  *fakeMessenger
	sess  *session.Manager
	gate  *session.Gate
	users *storage.Users
	dict  *sqlx.DB
	stats *sqlx.DB
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	stats, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = stats.Close() })
	if _, err := stats.Exec(statsSchema); err != nil {
		t.Fatal(err)
	}

	media, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = media.Close() })
	cache, err := storage.NewMediaCache(media)
	if err != nil {
		t.Fatal(err)
	}

	dictDB, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dictDB.Close() })
	if _, err := dictDB.Exec(dictSchema); err != nil {
		t.Fatal(err)
	}

	msgr := newFakeMessenger()
	sess := session.NewManager()
	gate := session.NewGate()
	answers := session.NewAnswers()
	users := storage.NewUsers(stats)
	pool := work.NewPool(work.Options{QueueSize: 16, Workers: 2})
	t.Cleanup(pool.Close)
	fetcher := fetch.New(fetch.Options{MaxAttempts: 2, Backoff: 10 * time.Millisecond})
	cfg.TempDir = t.TempDir()

	h := New(cfg, msgr, sess, gate, answers, users, cache, dict.New(dictDB), fetcher, pool)
	return &fixture{h: h, msgr: msgr, sess: sess, gate: gate, users: users, dict: dictDB, stats: stats}
}

func (fx *fixture) seedWords(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if _, err := fx.dict.Exec(`INSERT INTO entries (id, jlpt) VALUES (?, 5)`, i); err != nil {
			t.Fatal(err)
		}
		if _, err := fx.dict.Exec(`INSERT INTO kanji (entry_id, kanji) VALUES (?, ?)`, i, fmt.Sprintf("字%d", i)); err != nil {
			t.Fatal(err)
		}
		if _, err := fx.dict.Exec(`INSERT INTO readings (entry_id, reading) VALUES (?, ?)`, i, fmt.Sprintf("かな%d", i)); err != nil {
			t.Fatal(err)
		}
		if _, err := fx.dict.Exec(`INSERT INTO glosses (entry_id, gloss) VALUES (?, ?)`, i, fmt.Sprintf("cat%d", i)); err != nil {
			t.Fatal(err)
		}
	}
}

func waitPrompt(t *testing.T, fx *fixture, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-fx.msgr.prompts:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("prompt %q never sent", want)
		}
	}
}

const uid = int64(42)

func TestStartRegistersOnce(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	if err := fx.h.Start(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if err := fx.h.Start(ctx, uid); err != nil {
		t.Fatal(err)
	}

	sent := fx.msgr.sent()
	if len(sent) != 2 || sent[0] != msgRegistered || sent[1] != msgAlreadyExists {
		t.Fatalf("sent = %v", sent)
	}
	if !fx.h.Registered(uid) {
		t.Fatal("user should be registered")
	}
}

func TestFreeTextWithoutPendingCommand(t *testing.T) {
	fx := newFixture(t, Config{})
	if err := fx.h.HandleText(context.Background(), uid, "hello"); err != nil {
		t.Fatal(err)
	}
	sent := fx.msgr.sent()
	if len(sent) != 1 || sent[0] != msgGiveCommand {
		t.Fatalf("sent = %v", sent)
	}
}

func TestSearchPaginationContinue(t *testing.T) {
	fx := newFixture(t, Config{WaitTimeout: 2 * time.Second})
	fx.seedWords(t, 7)

	done := make(chan error, 1)
	go func() {
		done <- fx.h.SearchWord(context.Background(), uid, "cat")
	}()

	waitPrompt(t, fx, msgShowMore)
	fx.gate.Resolve(uid, session.SignalContinue)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := fx.msgr.countPrefix("*字"); got != 7 {
		t.Fatalf("sent %d summaries, want all 7", got)
	}
	if fx.msgr.countPrefix("Found 7 results.") != 1 {
		t.Fatal("missing results count message")
	}
}

func TestSearchPaginationStop(t *testing.T) {
	fx := newFixture(t, Config{WaitTimeout: 2 * time.Second})
	fx.seedWords(t, 7)

	done := make(chan error, 1)
	go func() {
		done <- fx.h.SearchWord(context.Background(), uid, "cat")
	}()

	waitPrompt(t, fx, msgShowMore)
	fx.gate.Resolve(uid, session.SignalStop)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := fx.msgr.countPrefix("*字"); got != 4 {
		t.Fatalf("sent %d summaries, want first page only", got)
	}
}

func TestSearchPaginationTimeout(t *testing.T) {
	fx := newFixture(t, Config{WaitTimeout: 50 * time.Millisecond})
	fx.seedWords(t, 7)

	if err := fx.h.SearchWord(context.Background(), uid, "cat"); err != nil {
		t.Fatal(err)
	}
	if got := fx.msgr.countPrefix("*字"); got != 4 {
		t.Fatalf("sent %d summaries, want first page only", got)
	}
	if fx.msgr.countPrefix(msgTimeout) != 1 {
		t.Fatal("missing timeout message")
	}
	if fx.gate.Waiting(uid) {
		t.Fatal("wait entry must be cleared after timeout")
	}
}

func TestSearchNoResults(t *testing.T) {
	fx := newFixture(t, Config{})
	if err := fx.h.SearchWord(context.Background(), uid, "nonesuch"); err != nil {
		t.Fatal(err)
	}
	sent := fx.msgr.sent()
	if len(sent) != 1 || sent[0] != msgNoResults {
		t.Fatalf("sent = %v", sent)
	}
}

func TestKanaAnswerGrading(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	fx.sess.SetExpectedAnswer(uid, "neko")
	if err := fx.h.CheckKanaAnswer(ctx, uid, "ねこ"); err != nil {
		t.Fatal(err)
	}
	if fx.msgr.countPrefix("*Correct!*") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}

	fx.sess.SetExpectedAnswer(uid, "neko")
	if err := fx.h.CheckKanaAnswer(ctx, uid, "inu"); err != nil {
		t.Fatal(err)
	}
	if fx.msgr.countPrefix("*Wrong!* It reads as *neko*") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}

	var correct, total int
	row := fx.stats.QueryRow(`SELECT kana_reading_correct, kana_reading_total FROM quiz_stats WHERE user_id = ?`, uid)
	if err := row.Scan(&correct, &total); err != nil {
		t.Fatal(err)
	}
	if correct != 1 || total != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", correct, total)
	}
}

func TestPollAnswerDispatchesOnce(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.seedWords(t, 5)
	ctx := context.Background()

	if err := fx.h.WordReadingGame(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if len(fx.msgr.polls) != 1 {
		t.Fatalf("polls = %v", fx.msgr.polls)
	}

	if err := fx.h.PollAnswer(ctx, uid, 0); err != nil {
		t.Fatal(err)
	}
	if err := fx.h.PollAnswer(ctx, uid, 0); err != nil {
		t.Fatal(err)
	}

	var total int
	row := fx.stats.QueryRow(`SELECT word_reading_total FROM quiz_stats WHERE user_id = ?`, uid)
	if err := row.Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("total = %d, a duplicate vote must not double-count", total)
	}
	if fx.msgr.countPrefix(msgContinue) != 2 {
		t.Fatal("every poll answer offers another round")
	}
}

func TestNumeralsKeypadRound(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	if err := fx.h.spellNumberGame(ctx, uid); err != nil {
		t.Fatal(err)
	}
	game, ok := fx.sess.Game(uid)
	if !ok {
		t.Fatal("no round started")
	}

	for _, r := range game.Kana {
		if err := fx.h.NumeralsKeypad(ctx, uid, string(r)); err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.h.NumeralsKeypad(ctx, uid, "="); err != nil {
		t.Fatal(err)
	}

	if fx.msgr.countPrefix("Correct!") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
	if fx.msgr.deletions != 1 {
		t.Fatal("keypad prompt must be deleted on grading")
	}
	if len(fx.msgr.edits) == 0 || !strings.HasPrefix(fx.msgr.edits[0], "Reply:") {
		t.Fatalf("edits = %v", fx.msgr.edits)
	}
	if fx.sess.GameInProgress(uid) {
		t.Fatal("round must end on =")
	}
}

func TestNumeralsKeypadWrongAnswer(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	if err := fx.h.spellNumberGame(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if err := fx.h.NumeralsKeypad(ctx, uid, "零"); err != nil {
		t.Fatal(err)
	}
	if err := fx.h.NumeralsKeypad(ctx, uid, "="); err != nil {
		t.Fatal(err)
	}
	if fx.msgr.countPrefix("Wrong! Correct answer is ") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
}

func TestStopClearsSession(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	fx.sess.SetPending(ctx, uid, session.GameKanaReading)
	if err := fx.h.Stop(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if _, ok := fx.sess.Pending(uid); ok {
		t.Fatal("pending command must be cleared")
	}
	if fx.msgr.countPrefix(msgDone) != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
}

func TestOneMoreResolvesOutstandingWait(t *testing.T) {
	fx := newFixture(t, Config{})
	if err := fx.gate.Begin(uid); err != nil {
		t.Fatal(err)
	}
	if err := fx.h.OneMore(context.Background(), uid); err != nil {
		t.Fatal(err)
	}
	sig := fx.gate.Await(context.Background(), uid, time.Second)
	if sig != session.SignalContinue {
		t.Fatalf("signal = %v, want continue", sig)
	}
	if len(fx.msgr.sent()) != 0 {
		t.Fatalf("sent = %v, want nothing while resuming", fx.msgr.sent())
	}
}

func TestOneMoreWithNothingPending(t *testing.T) {
	fx := newFixture(t, Config{})
	if err := fx.h.OneMore(context.Background(), uid); err != nil {
		t.Fatal(err)
	}
	if fx.msgr.countPrefix(msgNothingToGoOn) != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
}

func TestListeningGameCachesAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	fx := newFixture(t, Config{})
	ctx := context.Background()
	if _, err := fx.dict.Exec(`INSERT INTO examples (id, sentence) VALUES (10, '猫が好きです')`); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.dict.Exec(`INSERT INTO translations (example_id, lang, text) VALUES (10, 'eng', 'I like cats.')`); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.dict.Exec(`INSERT INTO audio (id, example_id, author, license, url) VALUES (7, 10, '', '', ?)`, srv.URL); err != nil {
		t.Fatal(err)
	}

	if err := fx.h.ListeningGame(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if len(fx.msgr.files) != 1 {
		t.Fatalf("files = %v, want one upload", fx.msgr.files)
	}
	if fx.msgr.countPrefix("Japanese: ||") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}

	// Second round reuses the platform file ID, no second upload.
	if err := fx.h.ListeningGame(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if len(fx.msgr.files) != 1 {
		t.Fatalf("files = %v, cache hit must not re-upload", fx.msgr.files)
	}
	if len(fx.msgr.audioIDs) != 1 || fx.msgr.audioIDs[0] != "tg-file-1" {
		t.Fatalf("audioIDs = %v", fx.msgr.audioIDs)
	}
}

func TestSetDifficulty(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	if err := fx.users.Create(ctx, uid); err != nil {
		t.Fatal(err)
	}

	if err := fx.h.SetDifficulty(ctx, uid, "Ultra Violence"); err != nil {
		t.Fatal(err)
	}
	rec, err := fx.users.Get(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Difficulty != 2 {
		t.Fatalf("difficulty = %d, want 2", rec.Difficulty)
	}
}

// stubContext fills in the few tele.Context methods the access gate touches.
type stubContext struct {
	tele.Context
	user *tele.User
	sent []string
}

func (c *stubContext) Sender() *tele.User { return c.user }

func (c *stubContext) Chat() *tele.Chat {
	return &tele.Chat{ID: c.user.ID, Type: tele.ChatPrivate}
}

func (c *stubContext) Send(what interface{}, opts ...interface{}) error {
	if text, ok := what.(string); ok {
		c.sent = append(c.sent, text)
	}
	return nil
}

func TestUnregisteredUserGate(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	reg := tg.NewRegistry()
	fx.h.Register(reg)

	c := &stubContext{user: &tele.User{ID: uid}}
	if err := reg.TextFallback()(c); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 1 || c.sent[0] != msgNotRegistered {
		t.Fatalf("sent = %v, want the not-registered prompt", c.sent)
	}
	if got := fx.msgr.sent(); len(got) != 0 {
		t.Fatalf("text handler ran for an unknown user: %v", got)
	}

	called := false
	wrapped := middleware.WithRegisteredCheck(fx.h.AccessOptions(), true, func(tele.Context) error {
		called = true
		return nil
	})
	if err := wrapped(c); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("command handler must not run before registration")
	}
	if len(c.sent) != 2 || c.sent[1] != msgNotRegistered {
		t.Fatalf("sent = %v, want a second not-registered prompt", c.sent)
	}

	if err := fx.users.Create(ctx, uid); err != nil {
		t.Fatal(err)
	}
	if err := wrapped(c); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("command handler must run once registered")
	}
}

func TestNumeralsKeypadAcceptsEquivalentSpelling(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	fx.sess.SetPending(ctx, uid, session.GameNumerals)
	fx.sess.SetGame(uid, session.NumeralsGame{Target: 111, Kana: "百十一"})

	// 一百一十一 spells 111 with explicit leading ones.
	for _, key := range []string{"一", "百", "一", "十", "一"} {
		if err := fx.h.NumeralsKeypad(ctx, uid, key); err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.h.NumeralsKeypad(ctx, uid, "="); err != nil {
		t.Fatal(err)
	}

	if fx.msgr.countPrefix("Correct!") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
}

func TestSearchWordByKanaReading(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	if _, err := fx.dict.Exec(`INSERT INTO entries (id, jlpt) VALUES (1, 5)`); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.dict.Exec(`INSERT INTO readings (entry_id, reading) VALUES (1, 'ねこ')`); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.dict.Exec(`INSERT INTO glosses (entry_id, gloss) VALUES (1, 'cat')`); err != nil {
		t.Fatal(err)
	}

	if err := fx.h.SearchWord(ctx, uid, "ねこ"); err != nil {
		t.Fatal(err)
	}
	if fx.msgr.countPrefix("Found 1 results.") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
	if fx.msgr.countPrefix("*ねこ*") != 1 {
		t.Fatalf("sent = %v", fx.msgr.sent())
	}
}
