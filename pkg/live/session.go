// Package live keeps a rendered preview of a DOT file current while the file
// and its attributes change.
//
// A [Session] owns an owner loop, the open document and a watcher on the
// backing file. Every document Change re-renders the preview on the loop.
// When another process rewrites the file, the session replaces the document
// with [document.Reopen]: an I/O failure (file locked, mid-rename, missing)
// asks the watcher to retry, a parse failure is logged and accepted so the
// next write triggers again, and the last good preview stays available until
// a render succeeds.
package live

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/loop"
	"github.com/matzehuels/livedot/pkg/render"
	"github.com/matzehuels/livedot/pkg/watcher"
)

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	Path     string
	DocID    string
	Format   string
	Output   []byte // last successful render; kept when a later one fails
	State    document.State
	Err      error // error of the most recent refresh, reopen or layout
	Revision uint64
	Updated  time.Time
}

// Event announces a new revision.
type Event struct {
	Revision uint64
	Reopened bool
	Err      error
}

// Session follows one DOT file.
type Session struct {
	path   string
	format string
	output string

	loop    *loop.Loop
	watcher *watcher.Watcher
	source  func(dir string) (watcher.Source, error)
	logger  *log.Logger

	docOpts   []document.Option
	watchOpts []watcher.Option

	// Loop-owned.
	doc *document.Document

	mu     sync.Mutex
	snap   Snapshot
	events chan Event
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger; it is also handed to the document
// and the watcher. The default discards output.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithDocumentOptions passes options to every document the session opens.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(s *Session) { s.docOpts = append(s.docOpts, opts...) }
}

// WithWatchOptions passes options to the watcher.
func WithWatchOptions(opts ...watcher.Option) Option {
	return func(s *Session) { s.watchOpts = append(s.watchOpts, opts...) }
}

// WithOutputFile writes every successful render to path.
func WithOutputFile(path string) Option { return func(s *Session) { s.output = path } }

// WithSource replaces the fsnotify event source.
func WithSource(fn func(dir string) (watcher.Source, error)) Option {
	return func(s *Session) { s.source = fn }
}

// Open opens path and prepares a session rendering it in format. Nothing
// is rendered until Run starts.
func Open(eng engine.Engine, path, format string, opts ...Option) (*Session, error) {
	if err := errors.ValidateFormat(format); err != nil {
		return nil, err
	}
	s := &Session{
		path:   path,
		format: format,
		loop:   loop.New(0),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		source: func(dir string) (watcher.Source, error) { return watcher.NewFSSource(dir) },
		events: make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(s)
	}

	docOpts := append([]document.Option{document.WithLogger(s.logger)}, s.docOpts...)
	doc, err := document.Open(eng, path, docOpts...)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	doc.Subscribe(s.onChange)

	watchOpts := append([]watcher.Option{watcher.WithLogger(s.logger)}, s.watchOpts...)
	w, err := watcher.New(path, s.loop, s.onFileChanged, watchOpts...)
	if err != nil {
		doc.Dispose()
		return nil, err
	}
	s.watcher = w

	s.snap = Snapshot{Path: path, DocID: doc.ID(), Format: format, State: doc.State()}
	return s, nil
}

// Run renders the document, then follows changes until ctx is cancelled.
// The document is disposed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	src, err := s.source(filepath.Dir(s.watcher.Path()))
	if err != nil {
		return err
	}
	defer src.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.watcher.Run(gctx, src)
		return nil
	})
	g.Go(func() error {
		return s.loop.Run(gctx)
	})
	s.loop.Post(func() { s.refresh(false, nil) })

	err = g.Wait()
	s.watcher.Close()
	s.doc.Dispose()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Snapshot returns the current state. Output is shared; do not modify it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Events delivers one Event per revision. Events are dropped when the
// channel is full; Snapshot always has the latest state.
func (s *Session) Events() <-chan Event { return s.events }

// Update runs fn on the owner loop with the current document. Mutations
// made by fn re-render the preview before Update returns.
func (s *Session) Update(ctx context.Context, fn func(*document.Document) error) error {
	return s.loop.Do(ctx, func() error { return fn(s.doc) })
}

// Render renders the current document in any format on the owner loop.
func (s *Session) Render(ctx context.Context, format string) ([]byte, error) {
	var out []byte
	err := s.loop.Do(ctx, func() error {
		var err error
		out, err = s.doc.Render(ctx, format)
		return err
	})
	return out, err
}

// Save writes the document back to its file without the watcher reporting
// the write as an external change.
func (s *Session) Save(ctx context.Context) error {
	return s.loop.Do(ctx, func() error {
		if err := s.doc.Save(s.path); err != nil {
			return err
		}
		s.watcher.Confirm()
		return nil
	})
}

// onChange runs on the loop. Reopen notifies before it returns the new
// document, so the current document is taken from the Change.
func (s *Session) onChange(c document.Change) {
	s.doc = c.Doc
	s.refresh(c.Reopened, c.LayoutErr)
}

// onFileChanged runs on the loop when the watcher sees a new timestamp.
func (s *Session) onFileChanged(path string) watcher.Result {
	nd, err := document.Reopen(s.doc, path)
	switch {
	case err == nil:
		s.doc = nd
		s.logger.Info("reloaded", "path", path, "doc", nd.ID())
		return watcher.Accept
	case errors.Is(err, errors.ErrCodeParse):
		s.logger.Warn("file changed but does not parse; keeping previous document", "path", path, "err", err)
		s.publish(nil, err, false)
		return watcher.Accept
	case errors.IsTransient(err):
		s.logger.Debug("file busy, retrying", "path", path, "err", err)
		return watcher.Retry
	default:
		s.logger.Error("reopen failed", "path", path, "err", err)
		s.publish(nil, err, false)
		return watcher.Accept
	}
}

// refresh renders the preview. A layout error from the triggering mutation
// takes precedence; the previous output is kept on any failure.
func (s *Session) refresh(reopened bool, layoutErr error) {
	if layoutErr != nil {
		s.publish(nil, layoutErr, reopened)
		return
	}

	ctx := context.Background()
	out, err := s.doc.Render(ctx, s.format)
	if err != nil {
		s.logger.Warn("render failed; keeping last output", "doc", s.doc.ID(), "format", s.format, "err", err)
		s.publish(nil, err, reopened)
		return
	}

	if s.output != "" {
		if werr := render.WriteFileAtomic(s.output, out); werr != nil {
			err = errors.Wrap(errors.ErrCodeIO, werr, "write %s", s.output)
			s.logger.Error("write output", "path", s.output, "err", werr)
		}
	}
	s.publish(out, err, reopened)
	s.logger.Info("rendered", "format", s.format, "bytes", len(out), "reopened", reopened)
}

func (s *Session) publish(out []byte, err error, reopened bool) {
	s.mu.Lock()
	s.snap.Revision++
	if out != nil {
		s.snap.Output = out
	}
	s.snap.Err = err
	s.snap.DocID = s.doc.ID()
	s.snap.State = s.doc.State()
	s.snap.Updated = time.Now()
	ev := Event{Revision: s.snap.Revision, Reopened: reopened, Err: err}
	s.mu.Unlock()

	select {
	case s.events <- ev:
	default:
	}
}
