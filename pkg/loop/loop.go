// Package loop provides the single owner context that serializes every
// document mutation, layout, render and watcher check.
//
// Functions posted from any goroutine run one at a time, in posting order,
// on the goroutine that called [Loop.Run]. Code running on the loop may post
// more work but must not call [Loop.Do], which would wait on itself.
package loop

import (
	"context"
	"sync"

	"github.com/matzehuels/livedot/pkg/errors"
)

// DefaultQueueSize is the number of posted functions buffered before Post blocks.
const DefaultQueueSize = 64

// Loop is a serial executor.
type Loop struct {
	queue chan func()
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns a loop with a queue of the given size. Sizes below 1 use
// [DefaultQueueSize].
func New(size int) *Loop {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It returns false, dropping fn, once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !l.Post(func() { result <- fn() }) {
		return errors.New(errors.ErrCodeDisposed, "loop stopped")
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have completed just before shutdown
		select {
		case err := <-result:
			return err
		default:
			return errors.New(errors.ErrCodeDisposed, "loop stopped")
		}
	}
}

// Run executes posted functions until ctx is cancelled. Work still queued
// at that point is dropped. Run may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.startOnce.Do(func() { started = true })
	if !started {
		return errors.New(errors.ErrCodeInternal, "loop already running")
	}
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
