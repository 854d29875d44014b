package architect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/lifecycle"
	"github.com/m3rciful/archbot/core/logger"
	tg "github.com/m3rciful/archbot/core/telegram"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"
	"github.com/m3rciful/archbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const component = "architect"

// Replier sends HTML replies to the sender of c.
type Replier interface {
	SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error
}

// Stopper begins a graceful shutdown.
type Stopper interface {
	RequestStop(reason string) bool
}

// Planner is invoked with an accepted selection once the user has been
// acknowledged. Layout and estimate generation plug in here.
type Planner interface {
	Plan(ctx context.Context, userID int64, sel Selection) error
}

// Handlers holds the bot's reply functions. They share only read-only config.
type Handlers struct {
	cfg     *coreconfig.Config
	send    Replier
	stopper Stopper
	planner Planner
}

// NewHandlers wires the handlers. planner may be nil.
func NewHandlers(cfg *coreconfig.Config, send Replier, stopper Stopper, planner Planner) *Handlers {
	if send == nil {
		send = tghelpers.NewSender(nil)
	}
	return &Handlers{cfg: cfg, send: send, stopper: stopper, planner: planner}
}

// Welcome greets any user and offers the mini-app button.
func (h *Handlers) Welcome(c tele.Context, ev tg.Event) error {
	ctx := tghelpers.WithHandler(c, "start")
	logger.Info(ctx, component, "start", slog.Int64("user_id", ev.SenderID))

	markup := keyboard.WebAppKeyboard(h.cfg.WebApp.ButtonText, h.cfg.WebApp.URL)
	return h.send.SendHTML(c, welcomeText, markup)
}

// Shutdown acknowledges the admin and asks the controller to drain.
// Non-admin callers never reach it; see Reject.
func (h *Handlers) Shutdown(c tele.Context, ev tg.Event) error {
	ctx := tghelpers.WithHandler(c, "stop")
	logger.Info(ctx, component, "stop.accepted", slog.Int64("user_id", ev.SenderID))

	sendErr := h.send.SendHTML(c, stoppingText)
	if sendErr != nil {
		logger.Error(ctx, component, "stop.ack", slog.String("status", "fail"),
			slog.String("err", sendErr.Error()))
	}
	if h.stopper != nil {
		h.stopper.RequestStop(lifecycle.ReasonCommand)
	}
	return sendErr
}

// Reject answers a caller that is not allowed to stop the bot.
func (h *Handlers) Reject(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "stop")
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	logger.Warn(ctx, component, "stop.denied",
		slog.String("status", "denied"),
		slog.Int64("user_id", userID),
	)
	return h.send.SendHTML(c, permissionDeniedText)
}

// WebAppData acknowledges the style picked in the mini-app. Every failure is
// reported to the user and logged; none is returned to the router.
func (h *Handlers) WebAppData(c tele.Context, ev tg.Event) (err error) {
	ctx := tghelpers.WithHandler(c, "web_app_data")
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "web_app.panic",
				slog.String("outcome", "recovered"),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			err = h.failServer(ctx, c)
		}
	}()

	logger.Info(ctx, component, "web_app.received",
		slog.Int64("user_id", ev.SenderID),
		slog.Int("payload_len", len(ev.Payload)),
	)

	sel, err := DecodeSelection(ev.Payload)
	if err != nil {
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			return h.failServer(ctx, c, slog.String("err", err.Error()))
		}
		logger.Error(ctx, component, "web_app.decode",
			slog.String("status", "fail"),
			slog.String("outcome", "recovered"),
			slog.String("err", decErr.Err.Error()),
			slog.String("payload", logger.SanitizeLimit(decErr.Raw, 512)),
		)
		if sendErr := h.send.SendHTML(c, decodeFailureText); sendErr != nil {
			logger.Error(ctx, component, "web_app.reply", slog.String("status", "fail"),
				slog.String("err", sendErr.Error()))
		}
		return nil
	}

	style := sel.DisplayStyle()
	if err := h.send.SendHTML(c, selectionText(style)); err != nil {
		return h.failServer(ctx, c, slog.String("err", err.Error()), slog.String("step", "ack"))
	}
	logger.Info(ctx, component, "web_app.accepted",
		slog.String("status", "ok"),
		slog.String("style", style),
	)

	if h.planner != nil {
		if err := h.planner.Plan(ctx, ev.SenderID, sel); err != nil {
			return h.failServer(ctx, c, slog.String("err", err.Error()), slog.String("step", "plan"))
		}
	}
	return nil
}

// failServer logs an unexpected failure and sends the generic apology.
// It always returns nil so the failure stays inside the handler.
func (h *Handlers) failServer(ctx context.Context, c tele.Context, attrs ...slog.Attr) error {
	logger.Error(ctx, component, "web_app.fail",
		append([]slog.Attr{slog.String("status", "fail"), slog.String("outcome", "recovered")}, attrs...)...)
	if err := h.send.SendHTML(c, serverFailureText); err != nil {
		logger.Error(ctx, component, "web_app.reply", slog.String("status", "fail"),
			slog.String("err", err.Error()))
	}
	return nil
}
