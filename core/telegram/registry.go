package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/archbot/core/logger"
	"github.com/m3rciful/archbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Handler processes one inbound event. c is used to reply.
type Handler func(c tele.Context, ev Event) error

// Registration binds a predicate to a handler. Registrations are evaluated in
// the order they were added and the first match wins.
type Registration struct {
	Name   string
	Match  Predicate
	Handle Handler
	// Command carries menu metadata for command registrations, nil otherwise.
	Command *commands.Command
}

// ErrRegistrySealed is returned when registering after the router was built.
var ErrRegistrySealed = errors.New("telegram: registry is sealed")

// Registry is the ordered dispatch table.
type Registry struct {
	mu      sync.RWMutex
	entries []Registration
	names   map[string]struct{}
	sealed  bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends a registration to the table.
func (r *Registry) Register(reg Registration) error {
	if r == nil || reg.Name == "" || reg.Match == nil || reg.Handle == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.skip",
			slog.String("handler", reg.Name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("telegram: invalid registration %q", reg.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	if _, exists := r.names[reg.Name]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.duplicate",
			slog.String("handler", reg.Name),
		)
		return fmt.Errorf("telegram: handler already registered: %s", reg.Name)
	}
	r.names[reg.Name] = struct{}{}
	r.entries = append(r.entries, reg)
	return nil
}

// RegisterCommand registers a slash command handler under its normalized name.
func (r *Registry) RegisterCommand(name string, cmd commands.Command, h Handler) error {
	key := commands.Normalize(name)
	if key == "" || cmd.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("command", name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("telegram: invalid command %q", name)
	}
	meta := cmd
	return r.Register(Registration{
		Name:    key,
		Match:   CommandIs(key, cmd.Aliases...),
		Handle:  h,
		Command: &meta,
	})
}

// RegisterWebApp registers the handler for mini-app data payloads.
func (r *Registry) RegisterWebApp(name string, h Handler) error {
	return r.Register(Registration{Name: name, Match: WebAppData(), Handle: h})
}

// Seal freezes the table. Further registrations fail with ErrRegistrySealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Match returns the first registration whose predicate accepts ev.
func (r *Registry) Match(ev Event) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.entries {
		if reg.Match(ev) {
			return reg, true
		}
	}
	return Registration{}, false
}

// Registrations returns a copy of the table in evaluation order.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Registration(nil), r.entries...)
}

// ListCommands returns menu entries in registration order, optionally
// filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for _, reg := range r.Registrations() {
		meta := reg.Command
		if meta == nil {
			continue
		}
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: reg.Name, Description: meta.Description})
	}
	return list
}

// InitBotCommands publishes the visible commands in the Telegram command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelDebug, "register.commands.set",
		slog.Int("count", len(list)),
	)
}
