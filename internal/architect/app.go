// Package architect is the AI-architect bot: a welcome screen that opens the
// house designer mini-app, an admin stop command and the mini-app result handler.
package architect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/archbot/core/bootstrap"
	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/lifecycle"
	"github.com/m3rciful/archbot/core/logger"
	tg "github.com/m3rciful/archbot/core/telegram"
	"github.com/m3rciful/archbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"
	"github.com/m3rciful/archbot/core/telegram/router"
	tgsender "github.com/m3rciful/archbot/core/telegram/sender"
)

// App owns the dispatch table, the lifecycle controller and the session.
type App struct {
	cfg      *coreconfig.Config
	session  *tg.Session
	ctrl     *lifecycle.Controller
	handlers *Handlers
	registry *tg.Registry
	router   *router.Router
}

// Bootstrap initializes logging and the Bot API session, then wires the app.
func Bootstrap(cfg *coreconfig.Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	app, err := New(cfg, res.Session, nil)
	if err != nil {
		_ = res.Session.Close()
		return nil, err
	}
	return app, nil
}

// New builds the handlers and the sealed dispatch table. Replies go through
// the session's outbound dispatcher; sess may be nil in tests, in which case
// they are sent inline.
func New(cfg *coreconfig.Config, sess *tg.Session, planner Planner) (*App, error) {
	var disp *tgsender.Dispatcher
	if sess != nil {
		disp = sess.Dispatcher()
	}
	return newApp(cfg, sess, tghelpers.NewSender(disp), planner)
}

func newApp(cfg *coreconfig.Config, sess *tg.Session, sender *tghelpers.Sender, planner Planner) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("architect: nil config provided")
	}

	ctrl := lifecycle.New()
	h := NewHandlers(cfg, sender, ctrl, planner)

	reg := tg.NewRegistry()
	if err := reg.RegisterCommand("start", commands.Command{
		Description: "Open the house designer",
	}, h.Welcome); err != nil {
		return nil, err
	}
	if err := reg.RegisterCommand("stop", commands.Command{
		Description: "Stop the bot",
		AdminOnly:   true,
	}, h.Shutdown); err != nil {
		return nil, err
	}
	if err := reg.RegisterWebApp("web_app_data", h.WebAppData); err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		session:  sess,
		ctrl:     ctrl,
		handlers: h,
		registry: reg,
		router: router.New(reg, router.Options{
			AdminID:       cfg.Telegram.AdminID,
			OnAdminReject: h.Reject,
		}),
	}, nil
}

// Controller exposes the lifecycle controller, e.g. to observe State.
func (a *App) Controller() *lifecycle.Controller { return a.ctrl }

// TelegramRunOptions assembles what the core runtime needs to run the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.session == nil {
		return tg.RunOptions{}, fmt.Errorf("architect: no telegram session")
	}
	return tg.RunOptions{
		Session:     a.session,
		Controller:  a.ctrl,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.ctrl),
		Routes:      a.router.Routes(),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if !a.cfg.Telegram.HasAdmin() {
		logger.Warn(ctx, component, "admin.missing",
			slog.String("reason", "ADMIN_ID unset or not numeric, /stop is disabled"))
	}
	logger.Info(ctx, component, "bot.started",
		slog.String("status", "ok"),
		slog.String("mode", a.cfg.Telegram.RunMode),
		slog.Bool("admin_configured", a.cfg.Telegram.HasAdmin()),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, rt tg.Runtime) error {
	attrs := []slog.Attr{slog.String("reason", a.ctrl.Reason())}
	if rt.Session != nil {
		disp := rt.Session.Dispatcher()
		attrs = append(attrs,
			slog.Uint64("sent", disp.Sent()),
			slog.Uint64("send_errors", disp.ErrorCount()),
		)
	}
	logger.Info(ctx, component, "bot.stopped", attrs...)
	return nil
}
