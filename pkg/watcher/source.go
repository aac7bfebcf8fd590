package watcher

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/livedot/pkg/errors"
)

// Op is a set of filesystem operations.
type Op uint32

// Operations reported by a Source.
const (
	Create Op = 1 << iota
	Write
	Rename
	Remove
	Chmod
)

// DefaultMask selects the operations that can leave new content behind.
const DefaultMask = Create | Write | Rename

// Has reports whether o contains every bit of other.
func (o Op) Has(other Op) bool { return o&other == other }

func (o Op) String() string {
	var parts []string
	for _, op := range []struct {
		op   Op
		name string
	}{{Create, "CREATE"}, {Write, "WRITE"}, {Rename, "RENAME"}, {Remove, "REMOVE"}, {Chmod, "CHMOD"}} {
		if o.Has(op.op) {
			parts = append(parts, op.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Event is one filesystem notification.
type Event struct {
	Name string // path of the affected file
	Op   Op
}

// Source is a stream of filesystem events. Its channels are closed when the
// source is closed.
type Source interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// FSSource is a Source backed by fsnotify, watching one directory.
// Watching the directory rather than the file keeps the subscription alive
// across rename-into-place writes.
type FSSource struct {
	w      *fsnotify.Watcher
	events chan Event
	errs   chan error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewFSSource watches dir.
func NewFSSource(dir string) (*FSSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create filesystem watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrap(errors.ErrCodeIO, err, "watch %s", dir)
	}

	s := &FSSource{
		w:      w,
		events: make(chan Event, 16),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pump()
	return s, nil
}

func (s *FSSource) pump() {
	defer s.wg.Done()
	defer close(s.events)
	defer close(s.errs)

	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			select {
			case s.events <- Event{Name: ev.Name, Op: fromFSNotify(ev.Op)}:
			case <-s.done:
				return
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

// Events implements Source.
func (s *FSSource) Events() <-chan Event { return s.events }

// Errors implements Source.
func (s *FSSource) Errors() <-chan error { return s.errs }

// Close stops the OS watch and closes both channels.
func (s *FSSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.w.Close()
		s.wg.Wait()
	})
	return err
}

func fromFSNotify(op fsnotify.Op) Op {
	var o Op
	if op.Has(fsnotify.Create) {
		o |= Create
	}
	if op.Has(fsnotify.Write) {
		o |= Write
	}
	if op.Has(fsnotify.Rename) {
		o |= Rename
	}
	if op.Has(fsnotify.Remove) {
		o |= Remove
	}
	if op.Has(fsnotify.Chmod) {
		o |= Chmod
	}
	return o
}

var _ Source = (*FSSource)(nil)
