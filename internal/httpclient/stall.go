package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrStalled is returned by a StallGuard body once no data arrived within
// its timeout.
var ErrStalled = errors.New("upstream stalled")

// StallGuard wraps a response body and cancels the request when a single
// read waits longer than timeout. Only pending reads are timed, so a caller
// that is slow to come back for more data never trips the guard.
type StallGuard struct {
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer
	stalled atomic.Bool
}

// NewStallGuard returns a disarmed guard; each Read arms it. cancel is
// invoked when the guard fires and again on Close.
func NewStallGuard(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *StallGuard {
	g := &StallGuard{
		body:    body,
		timeout: timeout,
		cancel:  cancel,
	}
	if timeout > 0 {
		g.timer = time.AfterFunc(timeout, func() {
			g.stalled.Store(true)
			cancel()
		})
		g.timer.Stop()
	}
	return g
}

func (g *StallGuard) Read(p []byte) (int, error) {
	if g.timer != nil {
		g.timer.Reset(g.timeout)
	}
	n, err := g.body.Read(p)
	if g.timer != nil {
		g.timer.Stop()
	}
	if g.stalled.Load() {
		return n, fmt.Errorf("%w: no data for %s", ErrStalled, g.timeout)
	}
	return n, err
}

func (g *StallGuard) Close() error {
	if g.timer != nil {
		g.timer.Stop()
	}
	err := g.body.Close()
	g.cancel()
	return err
}

// Stalled reports whether the guard has fired.
func (g *StallGuard) Stalled() bool { return g.stalled.Load() }
