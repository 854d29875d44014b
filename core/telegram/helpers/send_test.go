package helpers

import (
	"errors"
	"testing"

	"github.com/m3rciful/archbot/core/logger"
	"github.com/m3rciful/archbot/core/telegram/sender"
	"github.com/m3rciful/archbot/core/telegram/teletest"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestSenderReturnsQueuedSendError(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{})
	t.Cleanup(d.Close)
	s := NewSender(d)

	c := teletest.NewText(1, 7, "hi")
	gateway := errors.New("telegram: bad gateway")
	c.FailFirst(1, gateway)

	require.ErrorIs(t, s.SendHTML(c, "first"), gateway)
	require.NoError(t, s.SendHTML(c, "second", &tele.ReplyMarkup{ResizeKeyboard: true}))
	require.Equal(t, "second", c.LastText())

	replies, kb := ReplyCounters(c)
	require.Equal(t, 1, replies)
	require.True(t, kb)
	require.Equal(t, uint64(1), d.Sent())
	require.Equal(t, uint64(1), d.ErrorCount())
}

func TestSenderFallsBackInlineWhenQueueClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{})
	d.Close()
	s := NewSender(d)

	c := teletest.NewText(1, 7, "hi")
	require.NoError(t, s.SendText(c, "plain"))
	require.Equal(t, "plain", c.LastText())
	replies, kb := ReplyCounters(c)
	require.Equal(t, 1, replies)
	require.False(t, kb)
}

func TestSenderInline(t *testing.T) {
	var s *Sender
	c := teletest.NewText(1, 7, "hi")
	c.FailSends(errors.New("down"))
	require.Error(t, s.SendText(c, "x"))
	replies, _ := ReplyCounters(c)
	require.Zero(t, replies)
}

func TestContextBinding(t *testing.T) {
	c := teletest.NewText(5, 7, "hi")

	meta := logger.MetaFrom(Context(c))
	require.Equal(t, 5, meta.UpdateID)
	require.Equal(t, int64(7), meta.UserID)
	require.Equal(t, int64(7), meta.ChatID)
	require.Equal(t, "5:7:7", meta.RID)

	Bind(c, 5, 8, 9)
	ctx := WithHandler(c, "start")
	meta = logger.MetaFrom(ctx)
	require.Equal(t, int64(8), meta.UserID)
	require.Equal(t, int64(9), meta.ChatID)
	require.Equal(t, "start", meta.Handler)
	require.Equal(t, ctx, Context(c))
	require.Same(t, logger.TG, logger.FromContext(ctx))
}
