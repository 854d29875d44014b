package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	dropErr  error
	closeErr error

	started chan struct{}
	stop    chan struct{}
	once    sync.Once

	drops  atomic.Int32
	stops  atomic.Int32
	closes atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		started: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

func (f *fakeTransport) DropPending(context.Context) error {
	f.drops.Add(1)
	return f.dropErr
}

func (f *fakeTransport) Start() {
	close(f.started)
	<-f.stop
}

func (f *fakeTransport) Stop() {
	f.stops.Add(1)
	f.once.Do(func() { close(f.stop) })
}

func (f *fakeTransport) Close() error {
	f.closes.Add(1)
	return f.closeErr
}

func runAsync(ctx context.Context, c *Controller, t Transport) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, t) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
		return nil
	}
}

func TestStopRequestDrainsAndReleasesOnce(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	require.Equal(t, NotStarted, c.State())

	errCh := runAsync(context.Background(), c, tr)
	<-tr.started
	require.Equal(t, Polling, c.State())
	require.Equal(t, int32(1), tr.drops.Load())

	require.True(t, c.RequestStop(ReasonCommand))
	require.False(t, c.RequestStop(ReasonCommand))

	require.NoError(t, waitErr(t, errCh))
	require.Equal(t, Stopped, c.State())
	require.Equal(t, ReasonCommand, c.Reason())
	require.Equal(t, int32(1), tr.stops.Load())
	require.Equal(t, int32(1), tr.closes.Load())

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestInterruptReleasesOnce(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := runAsync(ctx, c, tr)
	<-tr.started
	cancel()
	// a late stop command must not release the session a second time
	c.RequestStop(ReasonCommand)

	require.NoError(t, waitErr(t, errCh))
	require.Equal(t, Stopped, c.State())
	require.Equal(t, int32(1), tr.closes.Load())
}

func TestDrainWaitsForInflightHandlers(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	errCh := runAsync(context.Background(), c, tr)
	<-tr.started

	done, ok := c.Enter()
	require.True(t, ok)

	c.RequestStop(ReasonCommand)
	require.Eventually(t, func() bool { return c.State() == Draining }, time.Second, 5*time.Millisecond)

	_, ok = c.Enter()
	require.False(t, ok, "new work must be refused while draining")

	select {
	case <-errCh:
		t.Fatal("run returned before in-flight handler finished")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, int32(0), tr.closes.Load())

	done()
	require.NoError(t, waitErr(t, errCh))
	require.Equal(t, int32(1), tr.closes.Load())
}

func TestDropPendingFailureStillPollsAndReleases(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	tr.dropErr = errors.New("network down")

	errCh := runAsync(context.Background(), c, tr)
	<-tr.started
	require.Equal(t, Polling, c.State())
	c.RequestStop(ReasonCommand)

	require.NoError(t, waitErr(t, errCh))
	require.Equal(t, int32(1), tr.closes.Load())
}

func TestCloseErrorIsReported(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	tr.closeErr = errors.New("close failed")

	errCh := runAsync(context.Background(), c, tr)
	<-tr.started
	c.RequestStop(ReasonCommand)

	err := waitErr(t, errCh)
	require.ErrorIs(t, err, tr.closeErr)
	require.Equal(t, Stopped, c.State())
}

func TestRunTwiceFails(t *testing.T) {
	c := New()
	tr := newFakeTransport()
	c.RequestStop(ReasonCommand)
	require.NoError(t, c.Run(context.Background(), tr))
	require.ErrorIs(t, c.Run(context.Background(), newFakeTransport()), ErrAlreadyStarted)
	require.Equal(t, int32(1), tr.closes.Load())
}

func TestEnterRefusedBeforeStart(t *testing.T) {
	c := New()
	done, ok := c.Enter()
	require.False(t, ok)
	done()
}
