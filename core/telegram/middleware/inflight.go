package middleware

import (
	"log/slog"

	"github.com/m3rciful/archbot/core/logger"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Gate admits handlers while the session accepts work.
type Gate interface {
	// Enter reports whether the update may run. done must be called when ok is true.
	Enter() (done func(), ok bool)
}

// InFlightMiddleware registers every admitted update with g so that shutdown
// can wait for it, and drops updates that arrive once draining has begun.
func InFlightMiddleware(g Gate) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if g == nil {
				return next(c)
			}
			done, ok := g.Enter()
			if !ok {
				logger.LogEvent(tghelpers.Context(c), logger.TG, slog.LevelDebug, "update.dropped",
					slog.String("status", "skip"),
					slog.String("reason", "draining"),
				)
				return nil
			}
			defer done()
			return next(c)
		}
	}
}
