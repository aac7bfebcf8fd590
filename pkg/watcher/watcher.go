package watcher

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/observability"
)

// Defaults for the retry policy.
const (
	DefaultRetryDelay     = 100 * time.Millisecond
	DefaultMaxStatRetries = 50
)

// Result is a Handler's verdict on a change notification.
type Result int

const (
	// Accept confirms the new timestamp; no retry follows.
	Accept Result = iota
	// Retry leaves the timestamp unconfirmed and re-checks after the retry delay.
	Retry
)

func (r Result) String() string {
	if r == Retry {
		return "retry"
	}
	return "accept"
}

// Handler is notified, on the owner loop, when the watched file has a new
// modification time.
type Handler func(path string) Result

// Poster runs functions on the owner loop. *loop.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Watcher detects out-of-process changes to one file.
//
// Everything except Notify, Run and Close runs on the owner loop.
type Watcher struct {
	path    string
	name    string
	owner   Poster
	handler Handler

	mask           Op
	clock          Clock
	retryDelay     time.Duration
	maxStatRetries int
	stat           func(string) (fs.FileInfo, error)
	logger         *log.Logger

	// Loop-owned.
	confirmed    time.Time
	statFailures int

	// mu guards the retry timer, which Close may cancel from any goroutine.
	mu     sync.Mutex
	timer  Timer
	gen    uint64
	closed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRetryDelay sets the re-check delay after a Retry or a failed stat.
func WithRetryDelay(d time.Duration) Option { return func(w *Watcher) { w.retryDelay = d } }

// WithMaxStatRetries bounds consecutive failed stats before the watcher
// waits for the next event. Zero or less retries forever.
func WithMaxStatRetries(n int) Option { return func(w *Watcher) { w.maxStatRetries = n } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(w *Watcher) { w.clock = c } }

// WithMask sets which operations trigger a check.
func WithMask(m Op) Option { return func(w *Watcher) { w.mask = m } }

// WithStat replaces os.Stat.
func WithStat(fn func(string) (fs.FileInfo, error)) Option { return func(w *Watcher) { w.stat = fn } }

// WithLogger sets the watcher logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New watches path. The file's current modification time, if it exists, is
// taken as confirmed.
func New(path string, owner Poster, handler Handler, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "watch path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}

	w := &Watcher{
		path:           abs,
		name:           filepath.Base(abs),
		owner:          owner,
		handler:        handler,
		mask:           DefaultMask,
		clock:          SystemClock{},
		retryDelay:     DefaultRetryDelay,
		maxStatRetries: DefaultMaxStatRetries,
		stat:           os.Stat,
		logger:         log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if info, err := w.stat(w.path); err == nil {
		w.confirmed = info.ModTime()
	}
	return w, nil
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string { return w.path }

// Notify feeds one filesystem event. Events for other files or outside the
// mask are ignored. Safe to call from any goroutine.
func (w *Watcher) Notify(ev Event) {
	if filepath.Base(ev.Name) != w.name || ev.Op&w.mask == 0 {
		return
	}
	w.logger.Debug("file event", "path", ev.Name, "op", ev.Op)
	w.owner.Post(w.check)
}

// Run feeds every event of src to Notify until ctx is done or src closes.
// Source errors are logged.
func (w *Watcher) Run(ctx context.Context, src Source) {
	events, errs := src.Events(), src.Errors()
	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.Notify(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("watch error", "path", w.path, "err", err)
		}
	}
}

// Confirm takes the file's current modification time as confirmed, so a
// write made by this process is not reported back. Call on the owner loop.
func (w *Watcher) Confirm() {
	if info, err := w.stat(w.path); err == nil {
		w.confirmed = info.ModTime()
	}
}

// Close cancels a pending retry. It does not close any Source.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.stopTimerLocked()
}

// check runs on the owner loop.
func (w *Watcher) check() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.stopTimerLocked()
	w.mu.Unlock()

	ctx := context.Background()
	hooks := observability.Watch()

	info, err := w.stat(w.path)
	if err != nil {
		w.statFailures++
		if w.maxStatRetries > 0 && w.statFailures >= w.maxStatRetries {
			w.logger.Warn("giving up on file until next change", "path", w.path, "attempts", w.statFailures, "err", err)
			w.statFailures = 0
			return
		}
		w.logger.Debug("stat failed, retrying", "path", w.path, "err", err)
		w.scheduleRetry()
		return
	}
	w.statFailures = 0

	mtime := info.ModTime()
	changed := !mtime.Equal(w.confirmed)
	hooks.OnCheck(ctx, w.path, changed)
	if !changed {
		return
	}

	res := w.handler(w.path)
	hooks.OnNotify(ctx, w.path, res == Retry)
	w.logger.Debug("change handled", "path", w.path, "mtime", mtime, "result", res)

	if res == Retry {
		w.scheduleRetry()
		return
	}
	w.confirmed = mtime
}

func (w *Watcher) scheduleRetry() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.stopTimerLocked()
	gen := w.gen
	w.timer = w.clock.AfterFunc(w.retryDelay, func() {
		w.owner.Post(func() {
			w.mu.Lock()
			stale := w.closed || gen != w.gen
			w.mu.Unlock()
			if !stale {
				w.check()
			}
		})
	})
}

// stopTimerLocked cancels the pending retry and invalidates any callback
// already queued on the owner loop.
func (w *Watcher) stopTimerLocked() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
