package handlers

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/core/logger"
	tg "github.com/m3rciful/kotobot/core/telegram"
	"github.com/m3rciful/kotobot/core/telegram/callbacks"
	"github.com/m3rciful/kotobot/core/telegram/commands"
	"github.com/m3rciful/kotobot/core/telegram/helpers"
	"github.com/m3rciful/kotobot/core/telegram/middleware"
	"github.com/m3rciful/kotobot/core/telegram/router"
)

// submit hands the handler work to the supervised pool so the update loop
// never blocks on a paginated search or a download.
func (h *Handlers) submit(c tele.Context, name string, fn func(ctx context.Context, userID int64) error) error {
	sender := c.Sender()
	if sender == nil || sender.IsBot {
		return nil
	}
	userID := sender.ID
	ctx := helpers.BuildContext(c)

	return h.pool.Submit(ctx, name, func(ctx context.Context) {
		if err := fn(ctx, userID); err != nil {
			logger.Warn(ctx, "session", "handler.failed",
				slog.String("handler", name),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	})
}

// AccessOptions builds the shared access gate: private chats only, user
// record required.
func (h *Handlers) AccessOptions() middleware.AccessOptions {
	return middleware.AccessOptions{
		Registered: h.Registered,
		OnUnregistered: func(c tele.Context) error {
			return helpers.SendText(c, msgNotRegistered)
		},
		OnGroupChat: func(c tele.Context) error {
			return helpers.SendText(c, msgGroupsNoGo)
		},
	}
}

// Register binds every command, callback label, and fallback to the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Description: "Register with the bot",
		Handler: func(c tele.Context) error {
			return h.submit(c, "start", h.Start)
		},
	})
	reg.RegisterCommand("/help", commands.Command{
		Description:  "List available commands",
		RequiresUser: true,
		Handler: func(c tele.Context) error {
			return h.submit(c, "help", h.Help)
		},
	})
	reg.RegisterCommand("/settings", commands.Command{
		Description:  "Choose difficulty",
		RequiresUser: true,
		Handler: func(c tele.Context) error {
			return h.submit(c, "settings", h.Settings)
		},
	})
	reg.RegisterCommand("/quiz", commands.Command{
		Description:  "Choose what to train",
		RequiresUser: true,
		Handler: func(c tele.Context) error {
			return h.submit(c, "quiz", h.Quiz)
		},
	})
	reg.RegisterCommand("/search", commands.Command{
		Description:  "Search the dictionary",
		RequiresUser: true,
		Handler:      h.payloadCommand("search", h.SearchWord),
	})
	reg.RegisterCommand("/example", commands.Command{
		Description:  "Search usage examples",
		RequiresUser: true,
		Handler:      h.payloadCommand("example", h.SearchExample),
	})
	reg.RegisterCommand("/info_word", commands.Command{
		Description:  "Full dictionary entry",
		RequiresUser: true,
		Handler:      h.payloadCommand("info_word", h.WordInfo),
	})

	for label, game := range map[string]func(context.Context, int64) error{
		labelKanaReading: h.KanaReadingGame,
		labelWordReading: h.WordReadingGame,
		labelWordMeaning: h.WordMeaningGame,
		labelListening:   h.ListeningGame,
		labelNumerals:    h.NumeralsGame,
		labelRandomTest:  h.RandomTest,
	} {
		game := game
		_ = reg.RegisterCallbackPrefix(label, func(c tele.Context) error {
			return h.submit(c, "game", game)
		})
	}

	_ = reg.RegisterCallbackPrefix(labelStop, func(c tele.Context) error {
		return h.submit(c, "stop", h.Stop)
	})
	_ = reg.RegisterCallbackPrefix(labelOneMore, func(c tele.Context) error {
		return h.submit(c, "one_more", h.OneMore)
	})
	for _, label := range difficultyLabels {
		label := label
		_ = reg.RegisterCallbackPrefix(label, func(c tele.Context) error {
			return h.submit(c, "set_difficulty", func(ctx context.Context, userID int64) error {
				return h.SetDifficulty(ctx, userID, label)
			})
		})
	}

	// Unmatched callback data is keypad input while a numerals round is in
	// progress, noise otherwise.
	reg.SetCallbackNotFound(func(c tele.Context) error {
		key := callbacks.CallbackKey(c)
		if c.Sender() == nil || !h.sessions.GameInProgress(c.Sender().ID) {
			logger.Debug(helpers.BuildContext(c), "session", "callback.unknown",
				slog.String("cb_key", logger.SanitizeLimit(key, 64)),
			)
			return nil
		}
		return h.submit(c, "numerals_keypad", func(ctx context.Context, userID int64) error {
			return h.NumeralsKeypad(ctx, userID, key)
		})
	})

	reg.SetTextFallback(middleware.WithRegisteredCheck(h.AccessOptions(), true,
		func(c tele.Context) error {
			text := c.Text()
			return h.submit(c, "text", func(ctx context.Context, userID int64) error {
				return h.HandleText(ctx, userID, text)
			})
		}))
}

func (h *Handlers) payloadCommand(name string, fn func(ctx context.Context, userID int64, input string) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		payload := ""
		if c.Message() != nil {
			payload = c.Message().Payload
		}
		return h.submit(c, name, func(ctx context.Context, userID int64) error {
			return fn(ctx, userID, payload)
		})
	}
}

// Waiting implements the text router's reply gate check.
func (h *Handlers) Waiting(userID int64) bool {
	return h.gate.Waiting(userID)
}

// HandleReply consumes text that arrives while a pagination wait is open:
// the wait stops and the text is processed as fresh input.
func (h *Handlers) HandleReply(c tele.Context) error {
	text := c.Text()
	return h.submit(c, "reply", func(ctx context.Context, userID int64) error {
		h.gate.Resolve(userID, session.SignalStop)
		return h.HandleText(ctx, userID, text)
	})
}

// Routes assembles the full route table for the bot runtime.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	h.Register(reg)

	access := h.AccessOptions()
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{Access: access})
	routes = append(routes, router.TextRoutes(h, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, tg.Route{
		Endpoint: tele.OnPollAnswer,
		Handler: func(c tele.Context) error {
			pa := c.PollAnswer()
			if pa == nil || len(pa.Options) == 0 {
				return nil
			}
			option := pa.Options[0]
			return h.submit(c, "poll_answer", func(ctx context.Context, userID int64) error {
				return h.PollAnswer(ctx, userID, option)
			})
		},
	})
	return routes
}
