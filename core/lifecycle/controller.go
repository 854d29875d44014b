// Package lifecycle drives the bot session through
// NotStarted → Polling → Draining → Stopped.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/archbot/core/logger"

	"golang.org/x/sync/errgroup"
)

// State is a controller lifecycle phase.
type State int32

const (
	NotStarted State = iota
	Polling
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Polling:
		return "polling"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Stop reasons recorded by the controller.
const (
	ReasonCommand   = "command"
	ReasonSignal    = "signal"
	ReasonTransport = "transport_exit"
)

// ErrAlreadyStarted is returned by a second call to Run.
var ErrAlreadyStarted = errors.New("lifecycle: controller already started")

// Transport is the session the controller owns while running.
type Transport interface {
	// DropPending discards updates queued before this process started.
	DropPending(ctx context.Context) error
	// Start blocks, delivering updates, until Stop is called.
	Start()
	// Stop makes Start return.
	Stop()
	// Close releases the session. The controller calls it exactly once.
	Close() error
}

// Controller coordinates startup, stop requests and guaranteed session release.
type Controller struct {
	mu       sync.Mutex
	ran      bool
	state    State
	reason   string
	accept   bool
	inflight sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New returns a controller in NotStarted.
func New() *Controller {
	return &Controller{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason returns why draining started, empty while polling.
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Done is closed once the controller reached Stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// RequestStop asks a running controller to drain. Only the first call has an
// effect; it reports whether this call was the one that triggered the stop.
func (c *Controller) RequestStop(reason string) bool {
	triggered := false
	c.stopOnce.Do(func() {
		c.mu.Lock()
		if c.reason == "" {
			c.reason = reason
		}
		c.mu.Unlock()
		close(c.stopCh)
		triggered = true
	})
	return triggered
}

// Enter registers an in-flight handler. ok is false once draining began, in
// which case the update must be dropped. done must be called when ok is true.
func (c *Controller) Enter() (done func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accept {
		return func() {}, false
	}
	c.inflight.Add(1)
	return c.inflight.Done, true
}

// Run drops the stale backlog, polls until a stop request or ctx cancellation,
// drains in-flight handlers and releases the transport on every exit path.
func (c *Controller) Run(ctx context.Context, t Transport) (err error) {
	if t == nil {
		return errors.New("lifecycle: nil transport")
	}
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.ran = true
	c.mu.Unlock()

	started := time.Now()
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			logger.Lifecycle.Error("transport release failed",
				slog.String("event", "transport.release"),
				slog.String("status", "fail"),
				slog.String("err", closeErr.Error()),
			)
			if err == nil {
				err = fmt.Errorf("lifecycle: release transport: %w", closeErr)
			}
		} else {
			logger.Lifecycle.Warn("bot stopped and resources cleaned up",
				slog.String("event", "transport.released"),
				slog.String("status", "ok"),
				slog.String("reason", c.Reason()),
				slog.Duration("uptime", logger.RoundMS(time.Since(started))),
			)
		}
		c.transition(Stopped)
		close(c.done)
	}()

	if dropErr := t.DropPending(ctx); dropErr != nil {
		logger.Lifecycle.Warn("failed to drop pending updates",
			slog.String("event", "backlog.drop"),
			slog.String("status", "fail"),
			slog.String("err", dropErr.Error()),
		)
	} else {
		logger.Lifecycle.Info("pending updates dropped",
			slog.String("event", "backlog.drop"),
			slog.String("status", "ok"),
		)
	}

	c.mu.Lock()
	c.accept = true
	c.mu.Unlock()
	c.transition(Polling)

	runDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(runDone)
		t.Start()
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			c.RequestStop(ReasonSignal)
		case <-c.stopCh:
		case <-runDone:
			c.RequestStop(ReasonTransport)
			c.beginDrain()
			return nil
		}
		c.beginDrain()
		t.Stop()
		return nil
	})
	err = g.Wait()

	c.inflight.Wait()
	return err
}

// beginDrain closes the admission gate and moves to Draining.
func (c *Controller) beginDrain() {
	c.mu.Lock()
	c.accept = false
	c.mu.Unlock()
	c.transition(Draining)
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	c.state = to
	reason := c.reason
	c.mu.Unlock()

	logger.Lifecycle.Info("state changed",
		slog.String("event", "state.change"),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason),
	)
}
