package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/kotobot/bot/kana"
	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/core/logger"
)

const helpText = `Available commands:
/start - register
/help - show this help
/settings - choose difficulty
/search <word> - search the dictionary
/example <word> - search usage examples
/info_word <word> - full dictionary entry
/quiz - choose what to train`

// Start registers the user; repeat calls are acknowledged, not an error.
func (h *Handlers) Start(ctx context.Context, userID int64) error {
	exists, err := h.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		logger.Info(ctx, "session", "user.exists", slog.Int64("user_id", userID))
		return h.msgr.Send(ctx, userID, msgAlreadyExists)
	}
	if err := h.users.Create(ctx, userID); err != nil {
		return err
	}
	logger.Info(ctx, "session", "user.created", slog.Int64("user_id", userID))
	return h.msgr.Send(ctx, userID, msgRegistered)
}

// Help lists the available commands.
func (h *Handlers) Help(ctx context.Context, userID int64) error {
	return h.msgr.Send(ctx, userID, helpText)
}

// Settings shows the difficulty keyboard.
func (h *Handlers) Settings(ctx context.Context, userID int64) error {
	_, err := h.msgr.SendKeyboard(ctx, userID, "Choose difficulty", difficultyKeyboard())
	return err
}

// SetDifficulty stores the level picked on the settings keyboard.
func (h *Handlers) SetDifficulty(ctx context.Context, userID int64, label string) error {
	for i, l := range difficultyLabels {
		if strings.HasPrefix(label, l) {
			if err := h.users.SetDifficulty(ctx, userID, i); err != nil {
				return err
			}
			return h.msgr.Send(ctx, userID, fmt.Sprintf("Difficulty set to %s.", l))
		}
	}
	return nil
}

// Quiz shows the game selection keyboard.
func (h *Handlers) Quiz(ctx context.Context, userID int64) error {
	_, err := h.msgr.SendKeyboard(ctx, userID, msgChooseTraining, quizKeyboard())
	return err
}

// SearchWord looks a word up by gloss, writing, or reading and paginates the
// results. Called both for "/search <word>" and for follow-up free text while
// the search command is pending.
func (h *Handlers) SearchWord(ctx context.Context, userID int64, input string) error {
	h.sessions.SetPending(ctx, userID, session.CommandSearchWord)
	_ = h.msgr.SendTyping(ctx, userID)

	input = firstToken(input)
	if input == "" {
		return h.msgr.Send(ctx, userID, msgEnterWord)
	}

	ids, err := h.dict.SearchGlossary(ctx, input)
	if err != nil {
		return err
	}
	more, err := h.dict.SearchJapanese(ctx, input)
	if err != nil {
		return err
	}
	ids = append(ids, more...)

	if kana.IsKana(input) {
		more, err = h.dict.SearchJapanese(ctx, kana.ToRomaji(input))
		if err != nil {
			return err
		}
		ids = append(ids, more...)
	}

	if len(ids) == 0 {
		return h.msgr.Send(ctx, userID, msgNoResults)
	}

	if err := h.msgr.Send(ctx, userID, fmt.Sprintf("Found %d results.", len(ids))); err != nil {
		return err
	}
	return h.paginate(ctx, userID, len(ids), func(i int) error {
		return h.sendWordSummary(ctx, userID, ids[i])
	})
}

func (h *Handlers) sendWordSummary(ctx context.Context, userID, entryID int64) error {
	writings, err := h.dict.Writings(ctx, entryID)
	if err != nil {
		return err
	}
	readings, err := h.dict.Readings(ctx, entryID)
	if err != nil {
		return err
	}
	glosses, err := h.dict.Glosses(ctx, entryID)
	if err != nil {
		return err
	}
	if len(readings) == 0 || len(glosses) == 0 {
		return nil
	}

	head, sub := readings[0], ""
	if len(writings) > 0 {
		head, sub = writings[0], readings[0]
	}
	text := fmt.Sprintf("*%s* _%s_ %s `%s` ...", head, sub, kana.ToRomaji(readings[0]), glosses[0])
	return h.msgr.SendMarkdown(ctx, userID, text)
}

// SearchExample looks the query up in example sentences.
func (h *Handlers) SearchExample(ctx context.Context, userID int64, input string) error {
	h.sessions.SetPending(ctx, userID, session.CommandSearchExample)
	_ = h.msgr.SendTyping(ctx, userID)

	input = firstToken(input)
	ids, err := h.dict.SearchExamples(ctx, input)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return h.msgr.Send(ctx, userID, msgEnterExample)
	}

	return h.paginate(ctx, userID, len(ids), func(i int) error {
		sentence, err := h.dict.Example(ctx, ids[i])
		if err != nil {
			return err
		}
		translations, err := h.dict.Translations(ctx, ids[i], "eng")
		if err != nil {
			return err
		}
		text := sentence
		if len(translations) > 0 {
			text += "\n" + translations[0]
		}
		return h.msgr.Send(ctx, userID, text)
	})
}

// WordInfo sends the full gloss/reading/writing lists for every match.
func (h *Handlers) WordInfo(ctx context.Context, userID int64, input string) error {
	input = firstToken(input)
	if input == "" {
		return h.msgr.Send(ctx, userID, "No input provided.")
	}

	ids, err := h.dict.SearchGlossary(ctx, input)
	if err != nil {
		return err
	}
	more, err := h.dict.SearchJapanese(ctx, input)
	if err != nil {
		return err
	}
	ids = append(ids, more...)
	if len(ids) == 0 {
		return h.msgr.Send(ctx, userID, msgNoResults)
	}

	if err := h.msgr.Send(ctx, userID, fmt.Sprintf("Found %d results.", len(ids))); err != nil {
		return err
	}
	return h.paginate(ctx, userID, len(ids), func(i int) error {
		return h.sendWordDetails(ctx, userID, ids[i])
	})
}

func (h *Handlers) sendWordDetails(ctx context.Context, userID, entryID int64) error {
	for _, lookup := range []func(context.Context, int64) ([]string, error){
		h.dict.Glosses, h.dict.Readings, h.dict.Writings,
	} {
		values, err := lookup(ctx, entryID)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			continue
		}
		if err := h.msgr.Send(ctx, userID, strings.Join(values, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// paginate sends items in pages, pausing on the wait gate between pages.
// A Stop reply or a timeout abandons the remainder.
func (h *Handlers) paginate(ctx context.Context, userID int64, total int, sendItem func(i int) error) error {
	for i := 0; i < total; i++ {
		if i > 0 && i%h.cfg.PageSize == 0 {
			if !h.promptMore(ctx, userID) {
				return nil
			}
		}
		if err := sendItem(i); err != nil {
			logger.Warn(ctx, "session", "paginate.item_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

func (h *Handlers) promptMore(ctx context.Context, userID int64) bool {
	if err := h.gate.Begin(userID); err != nil {
		logger.Warn(ctx, "session", "wait.already_outstanding",
			slog.Int64("user_id", userID),
		)
		return false
	}
	if _, err := h.msgr.SendKeyboard(ctx, userID, msgShowMore, continueKeyboard()); err != nil {
		h.gate.Cancel(userID)
		return false
	}

	switch h.gate.Await(ctx, userID, h.cfg.WaitTimeout) {
	case session.SignalContinue:
		return true
	case session.SignalTimedOut:
		_ = h.msgr.Send(ctx, userID, msgTimeout)
		return false
	default:
		return false
	}
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
