package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/logger"
	coretelegram "github.com/m3rciful/archbot/core/telegram"

	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.Use(slog.New(logger.NewHandler(&buf, logger.HandlerOptions{Format: logger.FormatKV})))
	t.Cleanup(func() { logger.Use(nil) })
	return &buf
}

type stubApp struct {
	opts coretelegram.RunOptions
	err  error
}

func (a stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestRunConfigErrorSkipsBootstrap(t *testing.T) {
	buf := captureLogs(t)
	bootstrapped := false
	err := Run(Options{
		LoadConfig: func(coreconfig.Options) (*coreconfig.Config, error) {
			return nil, coreconfig.ErrMissingToken
		},
		Bootstrap: func(*coreconfig.Config) (TelegramApp, error) {
			bootstrapped = true
			return stubApp{}, nil
		},
	})
	require.ErrorIs(t, err, coreconfig.ErrMissingToken)
	require.False(t, bootstrapped)
	require.True(t, IsReported(err))
	require.Contains(t, buf.String(), "event=config.load")
	require.Contains(t, buf.String(), "status=fail")
}

func TestRunPassesConfigPathAndWrapsHooks(t *testing.T) {
	t.Setenv("ARCHBOT_TEST_CONFIG", "/etc/archbot.yaml")

	var (
		gotOpts    coreconfig.Options
		startCalls int
		stopCalls  int
		shutdowns  int
	)
	app := stubApp{opts: coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { startCalls++; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { stopCalls++; return nil },
	}}

	err := Run(Options{
		ConfigEnvVar: "ARCHBOT_TEST_CONFIG",
		EnvFiles:     []string{".env"},
		LoadConfig: func(o coreconfig.Options) (*coreconfig.Config, error) {
			gotOpts = o
			return &coreconfig.Config{}, nil
		},
		Bootstrap:      func(*coreconfig.Config) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { shutdowns++; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			require.NoError(t, opts.OnStop(ctx, coretelegram.Runtime{}))
			return nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, "/etc/archbot.yaml", gotOpts.Path)
	require.Equal(t, []string{".env"}, gotOpts.EnvFiles)
	require.Equal(t, 1, startCalls)
	require.Equal(t, 1, stopCalls)
	require.Equal(t, 1, shutdowns)
}

func TestRunFlagOverridesEnvPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/from/env.yaml")
	var got string
	err := Run(Options{
		ConfigPath: "/from/flag.yaml",
		LoadConfig: func(o coreconfig.Options) (*coreconfig.Config, error) {
			got = o.Path
			return nil, errors.New("stop here")
		},
		Bootstrap: func(*coreconfig.Config) (TelegramApp, error) { return stubApp{}, nil },
	})
	require.Error(t, err)
	require.Equal(t, "/from/flag.yaml", got)
}

func TestRunBootstrapFailureIsLoggedAndFlushed(t *testing.T) {
	buf := captureLogs(t)
	boom := errors.New(`Post "https://api.telegram.org/bot123:AAsecret/getMe": unauthorized`)
	shutdowns := 0
	err := Run(Options{
		LoadConfig:     func(coreconfig.Options) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap:      func(*coreconfig.Config) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { shutdowns++; return nil },
	})
	require.ErrorIs(t, err, boom)
	require.True(t, IsReported(err))
	require.Equal(t, 1, shutdowns)

	line := buf.String()
	require.Contains(t, line, "level=ERROR")
	require.Contains(t, line, "event=bootstrap")
	require.Contains(t, line, "status=fail")
	require.Contains(t, line, "bot<redacted>")
	require.NotContains(t, line, "AAsecret")
}

func TestRunTelegramFailureIsLogged(t *testing.T) {
	buf := captureLogs(t)
	boom := errors.New("poller exploded")
	err := Run(Options{
		LoadConfig:     func(coreconfig.Options) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap:      func(*coreconfig.Config) (TelegramApp, error) { return stubApp{}, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram:    func(context.Context, coretelegram.RunOptions) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	require.True(t, IsReported(err))
	require.Contains(t, buf.String(), "event=run")
	require.Contains(t, buf.String(), "poller exploded")
	require.False(t, IsReported(boom))
}
