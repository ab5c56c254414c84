package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/m3rciful/kotobot/bot/dict"
	"github.com/m3rciful/kotobot/bot/kana"
	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/core/logger"
	"github.com/m3rciful/kotobot/core/telegram/format"
)

// KanaReadingGame sends a random kana string for the user to romanize in
// free text.
func (h *Handlers) KanaReadingGame(ctx context.Context, userID int64) error {
	_ = h.msgr.SendDice(ctx, userID)

	word := dict.RandomKanaWord(3+rand.Intn(6), rand.Float64())
	h.sessions.SetExpectedAnswer(userID, kana.ToRomaji(word))
	h.sessions.SetPending(ctx, userID, session.GameKanaReading)

	return h.msgr.SendMarkdown(ctx, userID,
		fmt.Sprintf("Can you read it? *%s*. _Repeat it in romaji_", word))
}

// CheckKanaAnswer grades a free-text reply to the kana-reading game.
func (h *Handlers) CheckKanaAnswer(ctx context.Context, userID int64, text string) error {
	expected, ok := h.sessions.TakeExpectedAnswer(userID)
	if !ok {
		return nil
	}

	answer := kana.ToRomaji(text)
	correct := answer == expected
	logger.Debug(ctx, "session", "kana_reading.graded",
		slog.Int64("user_id", userID),
		slog.Bool("correct", correct),
	)
	h.recordQuiz(ctx, userID, "kana_reading", correct)

	if correct {
		if err := h.msgr.SendMarkdown(ctx, userID, "*Correct!*"); err != nil {
			return err
		}
	} else {
		if err := h.msgr.SendMarkdown(ctx, userID,
			fmt.Sprintf("*Wrong!* It reads as *%s*", expected)); err != nil {
			return err
		}
	}

	h.sessions.SetPending(ctx, userID, session.GameKanaReading)
	_, err := h.msgr.SendKeyboard(ctx, userID, msgContinue, continueKeyboard())
	return err
}

// WordReadingGame posts a four-option reading quiz poll.
func (h *Handlers) WordReadingGame(ctx context.Context, userID int64) error {
	round, err := h.dict.ReadingQuiz(ctx, h.userLevel(ctx, userID))
	if err != nil {
		return err
	}
	if round == nil {
		logger.Warn(ctx, "dict", "quiz.no_material", slog.String("game", "word_reading"))
		return nil
	}

	if err := h.msgr.SendMarkdown(ctx, userID, "_How does this read?_"); err != nil {
		return err
	}
	return h.postQuizPoll(ctx, userID, round, session.GameWordReading, "word_reading")
}

// WordMeaningGame posts a four-option meaning quiz poll.
func (h *Handlers) WordMeaningGame(ctx context.Context, userID int64) error {
	round, err := h.dict.MeaningQuiz(ctx, h.userLevel(ctx, userID))
	if err != nil {
		return err
	}
	if round == nil {
		logger.Warn(ctx, "dict", "quiz.no_material", slog.String("game", "word_meaning"))
		return nil
	}

	if err := h.msgr.SendMarkdown(ctx, userID, "What does this mean?"); err != nil {
		return err
	}
	return h.postQuizPoll(ctx, userID, round, session.GameWordMeaning, "word_meaning")
}

func (h *Handlers) postQuizPoll(ctx context.Context, userID int64, round *dict.QuizRound, cmd session.Command, game string) error {
	if err := h.msgr.SendQuizPoll(ctx, userID, round.Question, round.Options, round.Correct); err != nil {
		return err
	}
	h.sessions.SetPending(ctx, userID, cmd)
	correct := round.Correct
	h.answers.Register(ctx, userID, func(optionIndex int) {
		h.recordQuiz(ctx, userID, game, optionIndex == correct)
	})
	return nil
}

// ListeningGame sends a spoilered example sentence with its audio. Audio
// already known to Telegram is resent by file ID; otherwise the file is
// downloaded, uploaded once, and the platform ID cached.
func (h *Handlers) ListeningGame(ctx context.Context, userID int64) error {
	exampleID, err := h.dict.RandomAudioExample(ctx)
	if err != nil {
		return err
	}
	if exampleID == 0 {
		logger.Warn(ctx, "dict", "quiz.no_material", slog.String("game", "listening"))
		return nil
	}

	audio, err := h.dict.AudioForExample(ctx, exampleID)
	if err != nil || audio == nil {
		return err
	}
	sentence, err := h.dict.Example(ctx, exampleID)
	if err != nil {
		return err
	}

	if err := h.sendSpoiler(ctx, userID, "Japanese", sentence); err != nil {
		return err
	}
	for _, lang := range []struct{ code, label string }{
		{"eng", "English"}, {"rus", "Russian"},
	} {
		translations, err := h.dict.Translations(ctx, exampleID, lang.code)
		if err != nil {
			return err
		}
		if len(translations) == 0 {
			continue
		}
		pick := translations[rand.Intn(len(translations))]
		if err := h.sendSpoiler(ctx, userID, lang.label, pick); err != nil {
			return err
		}
	}

	author := audio.Author
	if author == "" {
		author = "Anonymous"
	}
	license := audio.License
	if license == "" {
		license = "CC BY 4.0"
	}
	caption := fmt.Sprintf("This work by %s is licensed under %s.", author, license)

	if err := h.sendCachedAudio(ctx, userID, audio, caption); err != nil {
		return err
	}

	h.sessions.SetPending(ctx, userID, session.GameListening)
	_, err = h.msgr.SendKeyboard(ctx, userID, msgContinue, continueKeyboard())
	return err
}

func (h *Handlers) sendSpoiler(ctx context.Context, userID int64, label, text string) error {
	escaped, err := format.EscapeMarkdown(text, format.MarkdownV2)
	if err != nil {
		return err
	}
	return h.msgr.SendMarkdownV2(ctx, userID, fmt.Sprintf("%s: ||%s||", label, escaped))
}

func (h *Handlers) sendCachedAudio(ctx context.Context, userID int64, audio *dict.Audio, caption string) error {
	fileID, err := h.cache.Lookup(ctx, audio.ID)
	if err != nil {
		return err
	}
	if fileID != "" {
		logger.Debug(ctx, "cache", "audio.hit", slog.Int64("content_id", audio.ID))
		return h.msgr.SendAudioID(ctx, userID, fileID, caption, audio.Author)
	}

	dir := h.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("kotobot-audio-%d.mp3", audio.ID))
	if _, err := h.fetcher.Fetch(ctx, audio.URL, path, true); err != nil {
		return err
	}
	defer func() { _ = os.Remove(path) }()

	fileID, err = h.msgr.SendAudioFile(ctx, userID, path, caption, audio.Author)
	if err != nil {
		return err
	}
	if fileID != "" {
		if err := h.cache.Store(ctx, audio.ID, fileID); err != nil {
			logger.Warn(ctx, "cache", "audio.store_failed",
				slog.Int64("content_id", audio.ID),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

// NumeralsGame randomly runs either the number-spelling round or the counter
// quiz.
func (h *Handlers) NumeralsGame(ctx context.Context, userID int64) error {
	h.sessions.SetPending(ctx, userID, session.GameNumerals)
	if rand.Intn(2) == 0 {
		return h.spellNumberGame(ctx, userID)
	}
	return h.counterGame(ctx, userID)
}

func (h *Handlers) spellNumberGame(ctx context.Context, userID int64) error {
	target := dict.RandomNumber()
	answer := kana.NumberToKanji(target)

	prompt, err := h.msgr.SendKeyboard(ctx, userID,
		fmt.Sprintf("Spell %d", target), numeralKeyboard())
	if err != nil {
		return err
	}
	reply, err := h.msgr.SendKeyboard(ctx, userID, "Reply:", nil)
	if err != nil {
		return err
	}

	h.sessions.SetGame(userID, session.NumeralsGame{
		Target: target,
		Kana:   answer,
		Prompt: prompt,
		Reply:  reply,
	})
	return nil
}

func (h *Handlers) counterGame(ctx context.Context, userID int64) error {
	round, err := h.dict.CounterQuiz(ctx)
	if err != nil {
		return err
	}
	if round == nil {
		logger.Warn(ctx, "dict", "quiz.no_material", slog.String("game", "counters"))
		return nil
	}
	return h.postQuizPoll(ctx, userID, round, session.GameNumerals, "random")
}

// NumeralsKeypad consumes one keypad press of an in-progress spelling round.
// "=" parses the entry as a numeral and grades it against the target, so any
// spelling of the right number counts; any other key appends to the entry and
// updates the Reply message.
func (h *Handlers) NumeralsKeypad(ctx context.Context, userID int64, key string) error {
	game, ok := h.sessions.Game(userID)
	if !ok {
		return nil
	}

	if key != "=" {
		updated, ok := h.sessions.UpdateGame(userID, func(g *session.NumeralsGame) {
			g.Entry += key
		})
		if !ok {
			return nil
		}
		return h.msgr.Edit(ctx, updated.Reply, "Reply:"+updated.Entry)
	}

	h.sessions.EndGame(userID)
	_ = h.msgr.Delete(ctx, game.Prompt)

	value, parsed := kana.KanjiToNumber(game.Entry)
	correct := parsed && value == game.Target
	h.recordQuiz(ctx, userID, "random", correct)
	if correct {
		if err := h.msgr.Send(ctx, userID, "Correct!"); err != nil {
			return err
		}
	} else {
		if err := h.msgr.Send(ctx, userID,
			fmt.Sprintf("Wrong! Correct answer is %d = %s", game.Target, game.Kana)); err != nil {
			return err
		}
	}

	_, err := h.msgr.SendKeyboard(ctx, userID, msgContinue, continueKeyboard())
	return err
}

// RandomTest picks one of the six games uniformly.
func (h *Handlers) RandomTest(ctx context.Context, userID int64) error {
	switch rand.Intn(6) {
	case 0:
		return h.WordMeaningGame(ctx, userID)
	case 1:
		return h.KanaReadingGame(ctx, userID)
	case 2:
		return h.WordReadingGame(ctx, userID)
	case 3:
		h.sessions.SetPending(ctx, userID, session.GameNumerals)
		return h.spellNumberGame(ctx, userID)
	case 4:
		h.sessions.SetPending(ctx, userID, session.GameNumerals)
		return h.counterGame(ctx, userID)
	default:
		return h.ListeningGame(ctx, userID)
	}
}

func (h *Handlers) recordQuiz(ctx context.Context, userID int64, game string, correct bool) {
	if err := h.users.RecordQuizResult(ctx, userID, game, correct); err != nil {
		logger.Warn(ctx, "db", "quiz.record_failed",
			slog.Int64("user_id", userID),
			slog.String("game", game),
			slog.String("err", err.Error()),
		)
	}
}
