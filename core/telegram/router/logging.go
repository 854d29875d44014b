package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/archbot/core/logger"
	tghelpers "github.com/m3rciful/archbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// summary writes the single handler.handled line for a routed update.
type summary struct {
	handler string
	kind    string
	// status replaces the ok/fail derived from the handler error when set.
	status string
	start  time.Time
}

func (s summary) run(c tele.Context, fn func() error) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	s.write(c, err)
	return err
}

func (s summary) write(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	replies, kb := tghelpers.ReplyCounters(c)

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	status := s.status
	if status == "" {
		status = outcome
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("kind", s.kind),
		slog.String("outcome", outcome),
		slog.Int("messages", replies),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(logger.RedactToken(err.Error()), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

// logUnhandled records an event no registration matched. Nothing is sent back.
func logUnhandled(c tele.Context, kind string, start time.Time) {
	ctx := tghelpers.WithHandler(c, "unhandled")
	logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "handler.handled",
		slog.String("status", "skip"),
		slog.String("handler", "unhandled"),
		slog.String("kind", kind),
		slog.Duration("duration", logger.Took(start)),
	)
}

// handlerName turns a registration name into its log key: "/Web App" is "web_app".
func handlerName(name string) string {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(strings.Join(fields, "_"))
}

// errorCode groups handler errors in logs: Telegram API errors by their
// HTTP code, anything else by its Go type name.
func errorCode(err error) string {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "TG_" + strconv.Itoa(apiErr.Code)
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "TG_FLOOD"
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
