package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/core/logger"
)

// HandleText routes free text through the pending command, if any. Slash
// text landing here missed command dispatch, so it is an unknown command.
func (h *Handlers) HandleText(ctx context.Context, userID int64, text string) error {
	if strings.HasPrefix(text, "/") {
		return h.UnknownCommand(ctx, userID)
	}

	pending, ok := h.sessions.Pending(userID)
	if !ok {
		return h.msgr.Send(ctx, userID, msgGiveCommand)
	}

	switch pending {
	case session.CommandSearchWord:
		return h.SearchWord(ctx, userID, text)
	case session.CommandSearchExample:
		return h.SearchExample(ctx, userID, text)
	case session.GameKanaReading:
		return h.CheckKanaAnswer(ctx, userID, text)
	default:
		logger.Debug(ctx, "session", "text.ignored",
			slog.Int64("user_id", userID),
			slog.String("pending", pending.String()),
		)
		return nil
	}
}

// Stop resolves an outstanding pagination wait and clears the session.
func (h *Handlers) Stop(ctx context.Context, userID int64) error {
	h.gate.Resolve(userID, session.SignalStop)
	h.sessions.ClearPending(ctx, userID)
	h.sessions.EndGame(userID)
	return h.msgr.Send(ctx, userID, msgDone)
}

// OneMore resumes an outstanding pagination wait, or restarts the last game.
func (h *Handlers) OneMore(ctx context.Context, userID int64) error {
	if h.gate.Resolve(userID, session.SignalContinue) {
		return nil
	}

	pending, _ := h.sessions.Pending(userID)
	switch pending {
	case session.GameKanaReading:
		return h.KanaReadingGame(ctx, userID)
	case session.GameWordReading:
		return h.WordReadingGame(ctx, userID)
	case session.GameWordMeaning:
		return h.WordMeaningGame(ctx, userID)
	case session.GameListening:
		return h.ListeningGame(ctx, userID)
	case session.GameNumerals:
		return h.NumeralsGame(ctx, userID)
	default:
		return h.msgr.Send(ctx, userID, msgNothingToGoOn)
	}
}

// PollAnswer grades a quiz poll vote and offers another round. The one-shot
// callback registered with the round consumes the vote at most once.
func (h *Handlers) PollAnswer(ctx context.Context, userID int64, optionIndex int) error {
	if !h.answers.Dispatch(ctx, userID, optionIndex) {
		logger.Debug(ctx, "session", "poll.no_callback",
			slog.Int64("user_id", userID),
		)
	}
	h.gate.Resolve(userID, session.SignalStop)

	_, err := h.msgr.SendKeyboard(ctx, userID, msgContinue, continueKeyboard())
	return err
}

// UnknownCommand answers a slash command the registry does not know.
func (h *Handlers) UnknownCommand(ctx context.Context, userID int64) error {
	return h.msgr.Send(ctx, userID, msgUnknownCommand)
}
