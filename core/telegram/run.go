package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/lifecycle"
	"github.com/m3rciful/archbot/core/logger"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/archbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// Session is the connection to the Bot API: the bot, its HTTP client and the
// outbound reply queue. It is acquired once and released once.
type Session struct {
	bot         *tele.Bot
	client      *http.Client
	disp        *tgsender.Dispatcher
	longpoll    bool
	keepPending bool

	stopOnce  sync.Once
	closeOnce sync.Once
}

// NewSession builds the poller, HTTP client and bot described by cfg.
// It fails when the token is rejected by Telegram.
func NewSession(cfg *coreconfig.Config) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	webhook := strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook)
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		DropPending:            !cfg.Telegram.KeepPendingUpdates,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})
	client := BuildHTTPClient(longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds))

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:     cfg.Telegram.Token,
		Poller:    poller,
		Client:    client,
		ParseMode: tele.ModeHTML,
		OnError:   onError,
	})
	if err != nil {
		client.CloseIdleConnections()
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)/time.Second)),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	}

	return &Session{
		bot:    bot,
		client: client,
		disp: tgsender.NewDispatcher(tgsender.Options{
			QueueSize: cfg.Sender.QueueSize,
			Workers:   cfg.Sender.Workers,
		}),
		longpoll:    !webhook,
		keepPending: cfg.Telegram.KeepPendingUpdates,
	}, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (s *Session) Bot() *tele.Bot { return s.bot }

// Dispatcher returns the outbound reply queue owned by the session.
func (s *Session) Dispatcher() *tgsender.Dispatcher { return s.disp }

// DropPending discards updates queued while the bot was offline. In webhook
// mode the poller drops them when it registers the webhook.
func (s *Session) DropPending(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.keepPending || !s.longpoll {
		return nil
	}
	if err := s.bot.RemoveWebhook(true); err != nil {
		return fmt.Errorf("telegram: delete webhook: %w", err)
	}
	return nil
}

// Start runs the poller until Stop is called.
func (s *Session) Start() { s.bot.Start() }

// Stop makes Start return. Only the first call has an effect.
func (s *Session) Stop() {
	s.stopOnce.Do(s.bot.Stop)
}

// Close flushes the reply queue and drops idle connections.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.disp != nil {
			s.disp.Close()
		}
		if s.client != nil {
			s.client.CloseIdleConnections()
		}
	})
	return nil
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.Context(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(logger.RedactToken(err.Error()), 256)),
	)
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Session    *Session
	Controller *lifecycle.Controller
	// Registry, when set, publishes its visible commands in the bot menu.
	Registry *Registry

	Middlewares []Middleware
	Routes      []Route

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Session    *Session
	Registry   *Registry
	Controller *lifecycle.Controller
}

// RunTelegram wires middleware and routes onto the session and hands it to the
// controller until a stop is requested or ctx is done. The session is released
// on every return path.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sess := opts.Session
	if sess == nil {
		return fmt.Errorf("telegram: nil session provided")
	}
	ctrl := opts.Controller
	if ctrl == nil {
		ctrl = lifecycle.New()
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		sess.bot.Use(mw.Use)
	}
	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		sess.bot.Handle(route.Endpoint, route.Handler)
	}
	if opts.Registry != nil {
		InitBotCommands(sess.bot, opts.Registry)
	}

	rt := Runtime{Session: sess, Registry: opts.Registry, Controller: ctrl}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return errors.Join(err, sess.Close())
		}
	}

	runErr := ctrl.Run(ctx, sess)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	return errors.Join(runErr, stopErr)
}
