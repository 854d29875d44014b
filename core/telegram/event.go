package telegram

import (
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/archbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Kind discriminates inbound events.
type Kind int

const (
	// KindOther covers anything that is neither a command nor mini-app data.
	KindOther Kind = iota
	// KindCommand is a text message starting with a slash command.
	KindCommand
	// KindWebAppData carries the JSON string sent back by the mini-app.
	KindWebAppData
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindWebAppData:
		return "web_app_data"
	default:
		return "other"
	}
}

// Event is the transport-independent view of an inbound update.
type Event struct {
	Kind     Kind
	UpdateID int
	SenderID int64
	ChatID   int64
	// Command is the normalized command token, e.g. "start" for "/start@bot x".
	Command string
	Args    string
	// Payload is the raw message text or the mini-app data string.
	Payload string
	Time    time.Time
}

// EventFromUpdate classifies a Telegram update.
func EventFromUpdate(upd tele.Update) Event {
	ev := Event{UpdateID: upd.ID}
	msg := upd.Message
	if msg == nil {
		return ev
	}
	if msg.Sender != nil {
		ev.SenderID = msg.Sender.ID
	}
	if msg.Chat != nil {
		ev.ChatID = msg.Chat.ID
	}
	if msg.Unixtime != 0 {
		ev.Time = msg.Time()
	}

	if msg.WebAppData != nil {
		ev.Kind = KindWebAppData
		ev.Payload = msg.WebAppData.Data
		return ev
	}

	ev.Payload = msg.Text
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return ev
	}
	token, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, args = text[:i], text[i:]
	}
	if name := commands.Normalize(token); name != "" {
		ev.Kind = KindCommand
		ev.Command = name
		ev.Args = strings.TrimSpace(args)
	}
	return ev
}

// Predicate decides whether a registration handles the event.
type Predicate func(Event) bool

// CommandIs matches command events whose token equals name or one of the aliases.
func CommandIs(name string, aliases ...string) Predicate {
	names := make(map[string]struct{}, len(aliases)+1)
	for _, n := range append([]string{name}, aliases...) {
		if n = commands.Normalize(n); n != "" {
			names[n] = struct{}{}
		}
	}
	return func(ev Event) bool {
		if ev.Kind != KindCommand {
			return false
		}
		_, ok := names[ev.Command]
		return ok
	}
}

// WebAppData matches events carrying a mini-app payload.
func WebAppData() Predicate {
	return func(ev Event) bool {
		return ev.Kind == KindWebAppData
	}
}
