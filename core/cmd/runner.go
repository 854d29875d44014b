// Package cmd runs a Telegram bot process: config, bootstrap, signal-aware run.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/logger"
	coretelegram "github.com/m3rciful/archbot/core/telegram"
)

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigPath overrides the path read from ConfigEnvVar.
	ConfigPath   string
	ConfigEnvVar string
	EnvFiles     []string

	LoadConfig func(coreconfig.Options) (*coreconfig.Config, error)
	Bootstrap  func(cfg *coreconfig.Config) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Context is the parent of the signal context. Defaults to context.Background.
	Context context.Context
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot runtime.
// A configuration error returns before any connection to Telegram is made.
func Run(opts Options) error {
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := strings.TrimSpace(opts.ConfigPath)
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv(env))
	}
	if cfgPath != "" {
		logger.Fallback().Info("loading config",
			slog.String("component", "app"),
			slog.String("event", "config.load"),
			slog.String("path", cfgPath),
		)
	}

	cfg, err := loadConfig(coreconfig.Options{Path: cfgPath, EnvFiles: opts.EnvFiles})
	if err != nil {
		return report("config.load", fmt.Errorf("cmd: failed to load config: %w", err))
	}

	// Shutdown is a no-op until the logger is initialised, so the flush is
	// armed before Bootstrap gets a chance to initialise it and then fail.
	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return report("bootstrap", fmt.Errorf("cmd: bootstrap failed: %w", err))
	}

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return report("wire", fmt.Errorf("cmd: telegram options build failed: %w", err))
	}

	startedAt := time.Now()
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.L.With("component", "app").Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		attrs := []any{slog.String("event", "shutdown")}
		if rt.Controller != nil {
			attrs = append(attrs, slog.String("reason", rt.Controller.Reason()))
		}
		logger.L.With("component", "app").Info("shutting down...", attrs...)
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}

	if err := run(ctx, runOpts); err != nil {
		return report("run", err)
	}
	return nil
}

// reportedError marks an error that Run already logged.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already logged by Run, so callers
// only need to set the exit status.
func IsReported(err error) bool {
	var re *reportedError
	return errors.As(err, &re)
}

func report(event string, err error) error {
	logger.Fallback().LogAttrs(context.Background(), slog.LevelError, "fatal",
		slog.String("component", "app"),
		slog.String("event", event),
		slog.String("status", "fail"),
		slog.String("err", logger.RedactToken(err.Error())),
	)
	return &reportedError{err: err}
}
