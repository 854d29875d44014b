package middleware

import (
	"log/slog"

	"github.com/m3rciful/archbot/core/logger"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// AdminID of 0 means no admin is configured and every caller is rejected.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender of c is the configured admin.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	if o.AdminID == 0 {
		return false
	}
	user := c.Sender()
	return user != nil && user.ID == o.AdminID
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.IsAdmin(c) {
				return next(c)
			}
			ctx := tghelpers.Context(c)
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "access.denied",
				slog.String("status", "denied"),
				slog.Bool("admin_configured", opts.AdminID != 0),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
