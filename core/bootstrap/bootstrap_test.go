package bootstrap

import (
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/archbot/core/config"
	coretelegram "github.com/m3rciful/archbot/core/telegram"

	"github.com/stretchr/testify/require"
)

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	require.Error(t, err)
}

func TestRunStopsOnLoggerFailure(t *testing.T) {
	boom := errors.New("boom")
	sessionCalled := false
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
		NewSession: func(*coreconfig.Config) (*coretelegram.Session, error) {
			sessionCalled = true
			return nil, nil
		},
	})
	require.ErrorIs(t, err, boom)
	require.False(t, sessionCalled)
}

func TestRunWrapsSessionFailure(t *testing.T) {
	boom := errors.New("unauthorized")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		NewSession: func(*coreconfig.Config) (*coretelegram.Session, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "telegram session")
}
