package middleware

import tele "gopkg.in/telebot.v4"

// AccessOptions defines how access checks behave.
type AccessOptions struct {
	// Registered reports whether the user has completed /start.
	Registered     func(userID int64) bool
	OnUnregistered tele.HandlerFunc
	OnGroupChat    tele.HandlerFunc
}

// PrivateOnlyMiddleware rejects updates coming from group and channel chats.
func PrivateOnlyMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat != nil && chat.Type != tele.ChatPrivate {
				if opts.OnGroupChat != nil {
					return opts.OnGroupChat(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// WithRegisteredCheck wraps a command handler enforcing registration when required.
func WithRegisteredCheck(opts AccessOptions, required bool, handler tele.HandlerFunc) tele.HandlerFunc {
	if !required || opts.Registered == nil {
		return handler
	}
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !opts.Registered(sender.ID) {
			if opts.OnUnregistered != nil {
				return opts.OnUnregistered(c)
			}
			return nil
		}
		return handler(c)
	}
}
