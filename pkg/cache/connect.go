package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable matches every [UnavailableError].
var ErrUnavailable = errors.New("cache backend unavailable")

// UnavailableError reports a remote backend that did not answer a ping.
type UnavailableError struct {
	Backend  string // "redis" or "mongo"
	Addr     string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s unavailable after %d attempts: %v", e.Backend, e.Addr, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnavailable) true.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Connection retry tuning; tests shorten pingDelay.
var (
	pingAttempts = 3
	pingDelay    = 200 * time.Millisecond
	pingTimeout  = 2 * time.Second
)

// waitReady pings a freshly created client until it answers. Each attempt
// gets its own timeout and the delay doubles between attempts. A render
// never waits longer than that on a backend that is down; the CLI falls
// back to no caching.
func waitReady(ctx context.Context, backend, addr string, ping func(context.Context) error) error {
	delay := pingDelay
	var err error
	for i := 1; i <= pingAttempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return &UnavailableError{Backend: backend, Addr: addr, Attempts: i, Err: ctx.Err()}
		case <-time.After(delay):
			delay *= 2
		}
	}
	return &UnavailableError{Backend: backend, Addr: addr, Attempts: pingAttempts, Err: err}
}
