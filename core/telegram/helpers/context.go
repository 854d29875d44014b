package helpers

import (
	"context"

	"github.com/m3rciful/archbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const boundCtxKey = "archbot.ctx"

// Bind derives the logging context for one update from its classified ids
// and stores it on c. Later Bind calls replace it.
func Bind(c tele.Context, updateID int, userID, chatID int64) context.Context {
	ctx := logger.WithMeta(context.Background(), logger.NewMeta(updateID, userID, chatID))
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(boundCtxKey, ctx)
	return ctx
}

// Context returns the context bound to c. Before the router classifies the
// update it binds ids read straight off the incoming message.
func Context(c tele.Context) context.Context {
	if ctx, ok := c.Get(boundCtxKey).(context.Context); ok {
		return ctx
	}
	upd := c.Update()
	var userID, chatID int64
	if m := upd.Message; m != nil {
		if m.Sender != nil {
			userID = m.Sender.ID
		}
		if m.Chat != nil {
			chatID = m.Chat.ID
		}
	}
	return Bind(c, upd.ID, userID, chatID)
}

// WithHandler tags the bound context with the handler name.
func WithHandler(c tele.Context, name string) context.Context {
	ctx := Context(c)
	if name == "" {
		return ctx
	}
	meta := logger.MetaFrom(ctx)
	if meta.Handler == name {
		return ctx
	}
	meta.Handler = name
	ctx = logger.WithMeta(ctx, meta)
	c.Set(boundCtxKey, ctx)
	return ctx
}
