// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"errors"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Sent is one recorded outbound message.
type Sent struct {
	What any
	Opts []any
}

// Text returns the message text when What is a string.
func (s Sent) Text() string {
	text, _ := s.What.(string)
	return text
}

// SendOptions returns the first *tele.SendOptions passed with the message.
func (s Sent) SendOptions() *tele.SendOptions {
	for _, o := range s.Opts {
		if opts, ok := o.(*tele.SendOptions); ok {
			return opts
		}
	}
	return nil
}

// Context implements the subset of tele.Context used by handlers and
// middleware. Calling any other method panics.
type Context struct {
	tele.Context

	upd tele.Update

	mu      sync.Mutex
	store    map[string]any
	sent     []Sent
	attempts int
	sendErr  error
	failLeft int // -1 fails every send
}

// NewText returns a context for a text message from userID.
func NewText(updateID int, userID int64, text string) *Context {
	msg := baseMessage(userID)
	msg.Text = text
	return &Context{upd: tele.Update{ID: updateID, Message: msg}, store: map[string]any{}}
}

// NewWebAppData returns a context for a mini-app data message from userID.
func NewWebAppData(updateID int, userID int64, data string) *Context {
	msg := baseMessage(userID)
	msg.WebAppData = &tele.WebAppData{Data: data, Text: "🏠 Design my house"}
	return &Context{upd: tele.Update{ID: updateID, Message: msg}, store: map[string]any{}}
}

// NewUpdate wraps an arbitrary update.
func NewUpdate(upd tele.Update) *Context {
	return &Context{upd: upd, store: map[string]any{}}
}

func baseMessage(userID int64) *tele.Message {
	return &tele.Message{
		ID:       1,
		Sender:   &tele.User{ID: userID, Username: "tester"},
		Chat:     &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Unixtime: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Unix(),
	}
}

// FailSends makes every subsequent Send return err.
func (c *Context) FailSends(err error) {
	c.mu.Lock()
	c.sendErr, c.failLeft = err, -1
	c.mu.Unlock()
}

// FailFirst makes the next n sends return err; later sends succeed.
func (c *Context) FailFirst(n int, err error) {
	c.mu.Lock()
	c.sendErr, c.failLeft = err, n
	c.mu.Unlock()
}

// SendAttempts counts every Send and Reply call, failed ones included.
func (c *Context) SendAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// SentMessages returns a copy of everything sent so far.
func (c *Context) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// LastText returns the text of the most recent message, or "".
func (c *Context) LastText() string {
	sent := c.SentMessages()
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1].Text()
}

func (c *Context) Update() tele.Update { return c.upd }

func (c *Context) Message() *tele.Message { return c.upd.Message }

func (c *Context) Sender() *tele.User {
	if c.upd.Message != nil {
		return c.upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if c.upd.Message != nil {
		return c.upd.Message.Chat
	}
	return nil
}

func (c *Context) Recipient() tele.Recipient { return c.Chat() }

func (c *Context) Text() string {
	if c.upd.Message != nil {
		return c.upd.Message.Text
	}
	return ""
}

func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.sendErr != nil && c.failLeft != 0 {
		if c.failLeft > 0 {
			c.failLeft--
		}
		return c.sendErr
	}
	if c.upd.Message == nil {
		return errors.New("teletest: no recipient")
	}
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}
