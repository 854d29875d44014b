// Package router dispatches inbound events over the ordered registration table.
package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/archbot/core/logger"
	tg "github.com/m3rciful/archbot/core/telegram"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"
	"github.com/m3rciful/archbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Options configures admin gating of admin-only commands.
type Options struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// Router evaluates registrations in order and runs the first match.
type Router struct {
	reg   *tg.Registry
	admin middleware.AdminOptions
}

// New seals reg and returns a router over it.
func New(reg *tg.Registry, opts Options) *Router {
	if reg == nil {
		reg = tg.NewRegistry()
	}
	reg.Seal()
	r := &Router{
		reg: reg,
		admin: middleware.AdminOptions{
			AdminID:  opts.AdminID,
			OnReject: opts.OnAdminReject,
		},
	}

	regs := reg.Registrations()
	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("handlers", len(regs)),
		slog.Int("commands", len(reg.ListCommands(false))),
	)
	return r
}

// Dispatch classifies the update behind c and runs the matching handler.
// Unmatched events are dropped without a reply.
func (r *Router) Dispatch(c tele.Context) error {
	start := time.Now()
	ev := tg.EventFromUpdate(c.Update())
	tghelpers.Bind(c, ev.UpdateID, ev.SenderID, ev.ChatID)

	reg, ok := r.reg.Match(ev)
	if !ok {
		logUnhandled(c, ev.Kind.String(), start)
		return nil
	}

	h := func(c tele.Context) error { return reg.Handle(c, ev) }
	sum := summary{handler: handlerName(reg.Name), kind: ev.Kind.String(), start: start}
	if reg.Command != nil && reg.Command.AdminOnly {
		if !r.admin.IsAdmin(c) {
			sum.status = "denied"
		}
		h = middleware.AdminOnlyMiddleware(r.admin)(h)
	}

	return sum.run(c, func() error { return h(c) })
}

// Routes binds the router to every endpoint that can carry a routed event.
// Commands arrive through tele.OnText because no per-command endpoints are registered.
func (r *Router) Routes() []tg.Route {
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: r.Dispatch},
		{Endpoint: tele.OnWebApp, Handler: r.Dispatch},
	}
}
