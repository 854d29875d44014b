// Package bootstrap initializes process-wide infrastructure before handlers are wired.
package bootstrap

import (
	"fmt"

	coreconfig "github.com/m3rciful/archbot/core/config"
	"github.com/m3rciful/archbot/core/logger"
	coretelegram "github.com/m3rciful/archbot/core/telegram"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	NewSession func(*coreconfig.Config) (*coretelegram.Session, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Session *coretelegram.Session
}

// Run initializes the logger and opens the Bot API session.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	newSession := opts.NewSession
	if newSession == nil {
		newSession = coretelegram.NewSession
	}
	sess, err := newSession(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: telegram session failed: %w", err)
	}

	return &Result{Session: sess}, nil
}
