package telegram

import (
	"github.com/m3rciful/archbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for bots. gate, when
// non-nil, admits updates only while the session is polling.
func DefaultMiddlewares(gate middleware.Gate) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if gate != nil {
		mws = append(mws, Middleware{Name: "inflight", Use: middleware.InFlightMiddleware(gate)})
	}
	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
