package helpers

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/archbot/core/logger"
	"github.com/m3rciful/archbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Sender delivers replies through the outbound dispatcher and waits for the
// outcome, so callers see delivery errors. A Sender without a dispatcher
// sends inline on the handler goroutine.
type Sender struct {
	disp *sender.Dispatcher
}

// NewSender wraps d. d may be nil.
func NewSender(d *sender.Dispatcher) *Sender {
	return &Sender{disp: d}
}

func (s *Sender) deliver(c tele.Context, action, endpoint string, run func() error) error {
	if s == nil || s.disp == nil {
		return run()
	}

	ctx := Context(c)
	done, err := s.disp.Enqueue(ctx, action, endpoint, run)
	if err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return <-done
}

// SendText sends raw text (no parse mode) to the current recipient.
func (s *Sender) SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	err := s.deliver(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
	if err == nil {
		countReply(c, sendOpts)
	}
	return err
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
// Interpolated user input must be escaped with format.EscapeHTML.
func (s *Sender) SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm}
	return s.SendText(c, text, opts)
}
