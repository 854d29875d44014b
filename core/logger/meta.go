package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Meta identifies the update a log line belongs to. Zero fields are omitted.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

// NewMeta builds Meta for an update, deriving the rid from its ids.
func NewMeta(updateID int, userID, chatID int64) Meta {
	return Meta{
		RID:      BuildRID(updateID, chatID, userID),
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	}
}

type (
	metaKey   struct{}
	loggerKey struct{}
)

// WithMeta replaces the update metadata carried by ctx.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the metadata stored by WithMeta, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithLogger pins log to ctx. A nil log leaves ctx untouched.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger pinned by WithLogger, falling back to L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// BuildRID joins update, chat and user ids as "update:chat:user".
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.Itoa(updateID) + ":" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// CompactRID rewrites each rid segment in base36 joined by dots.
// Anything other than three integer segments comes back as given.
func CompactRID(rid string) string {
	segs := strings.Split(strings.TrimSpace(rid), ":")
	if len(segs) != 3 {
		return rid
	}
	var b strings.Builder
	for i, seg := range segs {
		n, err := strconv.ParseInt(seg, 10, 64)
		if err != nil {
			return rid
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatInt(n, 36))
	}
	return b.String()
}

// Took is the time since start, rounded for log output.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds. Negative input yields zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}
