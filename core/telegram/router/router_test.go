package router

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/m3rciful/archbot/core/logger"
	tg "github.com/m3rciful/archbot/core/telegram"
	"github.com/m3rciful/archbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"
	"github.com/m3rciful/archbot/core/telegram/sender"
	"github.com/m3rciful/archbot/core/telegram/teletest"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

const adminID = 42

type recorder struct {
	calls []string
	last  tg.Event
}

func (r *recorder) handler(name string) tg.Handler {
	return func(c tele.Context, ev tg.Event) error {
		r.calls = append(r.calls, name)
		r.last = ev
		return nil
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.Use(slog.New(logger.NewHandler(&buf, logger.HandlerOptions{
		Level:  slog.LevelDebug,
		Format: logger.FormatKV,
	})))
	t.Cleanup(func() { logger.Use(nil) })
	return &buf
}

func newRouter(t *testing.T, rec *recorder, rejected *int) *Router {
	t.Helper()
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("start", commands.Command{Description: "Start"}, rec.handler("start")))
	require.NoError(t, reg.RegisterCommand("stop", commands.Command{Description: "Stop", AdminOnly: true}, rec.handler("stop")))
	require.NoError(t, reg.RegisterWebApp("web_app_data", rec.handler("web_app_data")))
	return New(reg, Options{
		AdminID: adminID,
		OnAdminReject: func(c tele.Context) error {
			*rejected++
			return c.Send("denied")
		},
	})
}

func TestDispatchFirstMatch(t *testing.T) {
	rec := &recorder{}
	var rejected int
	r := newRouter(t, rec, &rejected)

	require.NoError(t, r.Dispatch(teletest.NewText(1, 7, "/start@archbot hello")))
	require.Equal(t, []string{"start"}, rec.calls)
	require.Equal(t, "start", rec.last.Command)
	require.Equal(t, "hello", rec.last.Args)
	require.Equal(t, int64(7), rec.last.SenderID)

	require.NoError(t, r.Dispatch(teletest.NewWebAppData(2, 7, `{"style":"loft"}`)))
	require.Equal(t, []string{"start", "web_app_data"}, rec.calls)
	require.Equal(t, `{"style":"loft"}`, rec.last.Payload)
	require.Equal(t, tg.KindWebAppData, rec.last.Kind)
}

func TestDispatchUnmatchedIsDropped(t *testing.T) {
	buf := captureLogs(t)
	rec := &recorder{}
	var rejected int
	r := newRouter(t, rec, &rejected)

	for i, text := range []string{"/help", "hello there", "/"} {
		c := teletest.NewText(10+i, 7, text)
		require.NoError(t, r.Dispatch(c))
		require.Empty(t, c.SentMessages())
	}
	require.Empty(t, rec.calls)
	require.Contains(t, buf.String(), "handler=unhandled")
	require.Contains(t, buf.String(), "status=skip")
}

func TestDispatchAdminGate(t *testing.T) {
	rec := &recorder{}
	var rejected int
	r := newRouter(t, rec, &rejected)

	c := teletest.NewText(1, 7, "/stop")
	require.NoError(t, r.Dispatch(c))
	require.Empty(t, rec.calls)
	require.Equal(t, 1, rejected)
	require.Equal(t, "denied", c.LastText())

	require.NoError(t, r.Dispatch(teletest.NewText(2, adminID, "/stop")))
	require.Equal(t, []string{"stop"}, rec.calls)
	require.Equal(t, 1, rejected)
}

func TestDispatchAdminGateWithoutAdmin(t *testing.T) {
	rec := &recorder{}
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("stop", commands.Command{Description: "Stop", AdminOnly: true}, rec.handler("stop")))
	rejected := 0
	r := New(reg, Options{OnAdminReject: func(tele.Context) error { rejected++; return nil }})

	require.NoError(t, r.Dispatch(teletest.NewText(1, 0, "/stop")))
	require.Empty(t, rec.calls)
	require.Equal(t, 1, rejected)
}

func TestDispatchReturnsHandlerError(t *testing.T) {
	buf := captureLogs(t)
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterCommand("start", commands.Command{Description: "Start"},
		func(tele.Context, tg.Event) error { return boom }))
	r := New(reg, Options{})

	err := r.Dispatch(teletest.NewText(1, 7, "/start"))
	require.ErrorIs(t, err, boom)
	require.Contains(t, buf.String(), "status=fail")
	require.Contains(t, buf.String(), "handler=start")
}

func TestDispatchSummaryCountsQueuedReplies(t *testing.T) {
	buf := captureLogs(t)
	d := sender.NewDispatcher(sender.Options{})
	t.Cleanup(d.Close)
	send := tghelpers.NewSender(d)

	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("start", commands.Command{Description: "Start"},
		func(c tele.Context, _ tg.Event) error {
			if err := send.SendText(c, "one"); err != nil {
				return err
			}
			return send.SendHTML(c, "<b>two</b>", &tele.ReplyMarkup{ResizeKeyboard: true})
		}))
	r := New(reg, Options{})

	c := teletest.NewText(9, 7, "/start")
	require.NoError(t, r.Dispatch(c))
	require.Len(t, c.SentMessages(), 2)

	line := buf.String()
	require.Contains(t, line, "event=handler.handled")
	require.Contains(t, line, "messages=2")
	require.Contains(t, line, "kb=true")
	require.Contains(t, line, "update_id=9")
	require.Contains(t, line, "user_id=7")
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, "TG_403", errorCode(fmt.Errorf("send: %w", &tele.Error{Code: 403})))
	require.Equal(t, "TG_FLOOD", errorCode(tele.FloodError{RetryAfter: 3}))
	require.Equal(t, "DECODEERROR", errorCode(&decodeError{}))
	require.Equal(t, "web_app", handlerName(" /Web  App "))
	require.Equal(t, "unknown", handlerName("/"))
}

type decodeError struct{}

func (*decodeError) Error() string { return "decode" }

func TestNewSealsRegistry(t *testing.T) {
	reg := tg.NewRegistry()
	New(reg, Options{})
	err := reg.RegisterWebApp("late", func(tele.Context, tg.Event) error { return nil })
	require.ErrorIs(t, err, tg.ErrRegistrySealed)
}

func TestRoutes(t *testing.T) {
	r := New(tg.NewRegistry(), Options{})
	routes := r.Routes()
	require.Len(t, routes, 2)
	require.Equal(t, tele.OnText, routes[0].Endpoint)
	require.Equal(t, tele.OnWebApp, routes[1].Endpoint)
}
