package router

import (
	"time"

	tg "github.com/m3rciful/kotobot/core/telegram"
	"github.com/m3rciful/kotobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ReplyGate is the minimal interface for the session reply gate. Text from a
// user with an open gate is consumed as the awaited reply and never reaches
// command dispatch.
type ReplyGate interface {
	Waiting(userID int64) bool
	HandleReply(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text routing: open reply gate
// first, then command/alias lookup, then the registry text fallback.
func TextRoutes(gate ReplyGate, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if gate != nil && c.Sender() != nil && gate.Waiting(c.Sender().ID) {
			return handleWithSummary(c, "reply_gate", start, "", "", func() error {
				return gate.HandleReply(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
