package handlers

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/core/logger"
	"github.com/m3rciful/kotobot/core/telegram/sender"
)

// Messenger is the narrow outbound surface the handlers need. The production
// implementation wraps the Telegram bot; tests substitute a fake.
type Messenger interface {
	Send(ctx context.Context, userID int64, text string) error
	SendMarkdown(ctx context.Context, userID int64, text string) error
	SendMarkdownV2(ctx context.Context, userID int64, text string) error
	SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (session.MessageRef, error)
	Edit(ctx context.Context, ref session.MessageRef, text string) error
	Delete(ctx context.Context, ref session.MessageRef) error
	SendQuizPoll(ctx context.Context, userID int64, question string, options []string, correct int) error
	SendAudioFile(ctx context.Context, userID int64, path, caption, performer string) (string, error)
	SendAudioID(ctx context.Context, userID int64, fileID, caption, performer string) error
	SendTyping(ctx context.Context, userID int64) error
	SendDice(ctx context.Context, userID int64) error
}

// BotMessenger sends through the live bot. Sends are synchronous because the
// callers already run on the handler pool; Forbidden responses (user blocked
// the bot) are swallowed.
type BotMessenger struct {
	Bot *tele.Bot
}

func (m *BotMessenger) send(ctx context.Context, userID int64, what any, opts ...any) (*tele.Message, error) {
	msg, err := m.Bot.Send(tele.ChatID(userID), what, opts...)
	if err != nil {
		if sender.IsForbidden(err) {
			logger.Warn(ctx, "tg", "send.forbidden",
				slog.Int64("user_id", userID),
			)
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

func (m *BotMessenger) Send(ctx context.Context, userID int64, text string) error {
	_, err := m.send(ctx, userID, text)
	return err
}

func (m *BotMessenger) SendMarkdown(ctx context.Context, userID int64, text string) error {
	_, err := m.send(ctx, userID, text, tele.ModeMarkdown)
	return err
}

func (m *BotMessenger) SendMarkdownV2(ctx context.Context, userID int64, text string) error {
	_, err := m.send(ctx, userID, text, tele.ModeMarkdownV2)
	return err
}

func (m *BotMessenger) SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (session.MessageRef, error) {
	var msg *tele.Message
	var err error
	if kb == nil {
		msg, err = m.send(ctx, userID, text)
	} else {
		msg, err = m.send(ctx, userID, text, kb)
	}
	if err != nil || msg == nil {
		return session.MessageRef{}, err
	}
	return session.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (m *BotMessenger) Edit(ctx context.Context, ref session.MessageRef, text string) error {
	_, err := m.Bot.Edit(tele.StoredMessage{MessageID: itoa(ref.MessageID), ChatID: ref.ChatID}, text)
	if err != nil && !sender.IsForbidden(err) {
		return err
	}
	return nil
}

func (m *BotMessenger) Delete(ctx context.Context, ref session.MessageRef) error {
	err := m.Bot.Delete(tele.StoredMessage{MessageID: itoa(ref.MessageID), ChatID: ref.ChatID})
	if err != nil && !sender.IsForbidden(err) {
		return err
	}
	return nil
}

func (m *BotMessenger) SendQuizPoll(ctx context.Context, userID int64, question string, options []string, correct int) error {
	poll := &tele.Poll{
		Type:          tele.PollQuiz,
		Question:      question,
		CorrectOption: correct,
	}
	poll.AddOptions(options...)
	_, err := m.send(ctx, userID, poll)
	return err
}

func (m *BotMessenger) SendAudioFile(ctx context.Context, userID int64, path, caption, performer string) (string, error) {
	audio := &tele.Audio{
		File:      tele.FromDisk(path),
		Caption:   caption,
		Performer: performer,
		Title:     "Tatoeba",
		MIME:      "audio/mpeg",
	}
	msg, err := m.send(ctx, userID, audio)
	if err != nil || msg == nil || msg.Audio == nil {
		return "", err
	}
	return msg.Audio.FileID, nil
}

func (m *BotMessenger) SendAudioID(ctx context.Context, userID int64, fileID, caption, performer string) error {
	audio := &tele.Audio{
		File:      tele.File{FileID: fileID},
		Caption:   caption,
		Performer: performer,
		Title:     "Tatoeba",
	}
	_, err := m.send(ctx, userID, audio)
	return err
}

func (m *BotMessenger) SendTyping(ctx context.Context, userID int64) error {
	err := m.Bot.Notify(tele.ChatID(userID), tele.Typing)
	if err != nil && !sender.IsForbidden(err) {
		return err
	}
	return nil
}

func (m *BotMessenger) SendDice(ctx context.Context, userID int64) error {
	_, err := m.send(ctx, userID, tele.Cube)
	return err
}
