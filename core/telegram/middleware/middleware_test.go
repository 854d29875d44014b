package middleware

import (
	"testing"

	"github.com/m3rciful/archbot/core/telegram/teletest"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestAdminOnlyMiddleware(t *testing.T) {
	calls, rejects := 0, 0
	next := func(tele.Context) error { calls++; return nil }
	reject := func(tele.Context) error { rejects++; return nil }

	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 5, OnReject: reject})
	require.NoError(t, mw(next)(teletest.NewText(1, 5, "/stop")))
	require.NoError(t, mw(next)(teletest.NewText(2, 6, "/stop")))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, rejects)

	unset := AdminOnlyMiddleware(AdminOptions{OnReject: reject})
	require.NoError(t, unset(next)(teletest.NewText(3, 5, "/stop")))
	require.Equal(t, 1, calls)
	require.Equal(t, 2, rejects)
}

type fakeGate struct {
	open    bool
	entered int
	left    int
}

func (g *fakeGate) Enter() (func(), bool) {
	if !g.open {
		return func() {}, false
	}
	g.entered++
	return func() { g.left++ }, true
}

func TestInFlightMiddleware(t *testing.T) {
	g := &fakeGate{open: true}
	calls := 0
	h := InFlightMiddleware(g)(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(teletest.NewText(1, 5, "hi")))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, g.entered)
	require.Equal(t, 1, g.left)

	g.open = false
	require.NoError(t, h(teletest.NewText(2, 5, "hi")))
	require.Equal(t, 1, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(teletest.NewText(1, 5, "hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
