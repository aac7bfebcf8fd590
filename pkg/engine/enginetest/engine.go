// Package enginetest provides a deterministic in-memory [engine.Engine] for
// tests. It mirrors DOT attribute tables with the real parser but fakes
// layout and rendering, and it counts layouts so tests can assert that at most
// one artifact is alive per handle.
package enginetest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
)

// Engine is a fake graph engine. The zero value is not usable; call New.
type Engine struct {
	mu sync.Mutex

	layouts  []string
	formats  []string
	failing  map[string]error
	renderFn func(format string) error

	layoutCalls int
	frees       int
	live        int
	maxLive     int
	renders     int
}

type handle struct {
	*engine.DOT
	engine  string
	laidOut bool
	closed  bool
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

// New returns an engine offering the "dot" and "neato" layouts and the
// "dot", "png" and "svg" formats.
func New() *Engine {
	return &Engine{
		layouts: []string{"dot", "neato"},
		formats: []string{"dot", "png", "svg"},
		failing: make(map[string]error),
	}
}

// FailLayout makes every subsequent layout with the named engine fail.
// Passing a nil error restores it.
func (e *Engine) FailLayout(name string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failing, name)
		return
	}
	e.failing[name] = err
}

// SetRenderError installs a hook consulted before every render. A non-nil
// return fails the render with that diagnostic.
func (e *Engine) SetRenderError(fn func(format string) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFn = fn
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	Layouts int // successful layout calls
	Frees   int // layouts released
	Live    int // layouts currently alive
	MaxLive int // high-water mark of Live
	Renders int // successful renders
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Layouts: e.layoutCalls, Frees: e.frees, Live: e.live, MaxLive: e.maxLive, Renders: e.renders}
}

// Live returns the number of layouts currently alive across all handles.
func (e *Engine) Live() int {
	return e.Stats().Live
}

// Parse implements engine.Engine.
func (e *Engine) Parse(data []byte) (engine.Handle, error) {
	d, err := engine.ParseDOT(data)
	if err != nil {
		return nil, err
	}
	return &handle{DOT: d}, nil
}

// Serialize implements engine.Engine.
func (e *Engine) Serialize(h engine.Handle) ([]byte, error) {
	fh, err := e.handle(h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "serialize")
	}
	return fh.Bytes(), nil
}

// Layout implements engine.Engine. It fails when the handle already holds a
// layout, which is how tests detect a leaked artifact.
func (e *Engine) Layout(h engine.Handle, name string) error {
	fh, err := e.handle(h)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLayout, err, "layout")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if fh.laidOut {
		return errors.New(errors.ErrCodeLayout, "layout: previous layout still live")
	}
	if !slices.Contains(e.layouts, name) {
		return errors.New(errors.ErrCodeLayout, "layout: unknown layout engine %q", name)
	}
	if ferr := e.failing[name]; ferr != nil {
		return errors.Wrap(errors.ErrCodeLayout, ferr, "layout with %s", name)
	}

	fh.laidOut = true
	fh.engine = name
	e.layoutCalls++
	e.live++
	e.maxLive = max(e.maxLive, e.live)
	return nil
}

// FreeLayout implements engine.Engine.
func (e *Engine) FreeLayout(h engine.Handle) {
	fh, ok := h.(*handle)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !fh.laidOut {
		return
	}
	fh.laidOut = false
	e.frees++
	e.live--
}

// Render implements engine.Engine. The output is a stable text rendering of
// the format, layout engine and serialized document.
func (e *Engine) Render(_ context.Context, h engine.Handle, format string) ([]byte, error) {
	fh, err := e.renderable(h, format)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "%s/%s\n%s", format, fh.engine, fh.Bytes()), nil
}

// RenderFile implements engine.Engine.
func (e *Engine) RenderFile(ctx context.Context, h engine.Handle, format, path string) error {
	data, err := e.Render(ctx, h, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "render %s to %s", format, path)
	}
	return nil
}

// Plugins implements engine.Engine.
func (e *Engine) Plugins(kind engine.Capability) []string {
	switch kind {
	case engine.CapabilityLayout:
		return slices.Clone(e.layouts)
	case engine.CapabilityRender:
		return slices.Clone(e.formats)
	default:
		return nil
	}
}

// Close implements engine.Engine.
func (e *Engine) Close() error { return nil }

func (e *Engine) handle(h engine.Handle) (*handle, error) {
	fh, ok := h.(*handle)
	if !ok {
		return nil, fmt.Errorf("handle %T was not created by this engine", h)
	}
	if fh.closed {
		return nil, fmt.Errorf("handle is closed")
	}
	return fh, nil
}

func (e *Engine) renderable(h engine.Handle, format string) (*handle, error) {
	fh, err := e.handle(h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.Contains(e.formats, format) {
		return nil, errors.New(errors.ErrCodeRender, "render: no device plugin for format %q", format)
	}
	if !fh.laidOut {
		return nil, errors.New(errors.ErrCodeRender, "render %s: document has no layout", format)
	}
	if e.renderFn != nil {
		if rerr := e.renderFn(format); rerr != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, rerr, "render %s", format)
		}
	}
	e.renders++
	return fh, nil
}

var _ engine.Engine = (*Engine)(nil)
