package engine

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/matzehuels/livedot/pkg/errors"
)

// Known Graphviz plugins available in the go-graphviz WebAssembly build.
var (
	graphvizLayouts = []string{"circo", "dot", "fdp", "neato", "osage", "patchwork", "sfdp", "twopi"}
	graphvizFormats = []string{"dot", "jpg", "png", "svg", "xdot"}
)

// Graphviz is an [Engine] backed by go-graphviz.
//
// A layout is computed by rendering the document to the "dot" device, which
// forces Graphviz to run the layout engine and yields the layout-augmented DOT
// text. The parsed graph is kept with that text until FreeLayout.
//
// Only "dot" output is served from the laid-out text. go-graphviz runs the
// layout engine again inside every other Render, so the first render of each
// further format lays the graph out once more. The document memoizes each
// format's output, which bounds this to one extra layout per format per
// change.
type Graphviz struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// gvHandle is the Graphviz handle: the mirrored DOT document plus at most
// one live layout.
type gvHandle struct {
	*DOT
	layout *gvLayout
	closed bool
}

type gvLayout struct {
	graph   *cgraph.Graph
	engine  string
	laidOut []byte
}

func (h *gvHandle) Close() error {
	h.closed = true
	return nil
}

// NewGraphviz initializes the Graphviz runtime.
func NewGraphviz(ctx context.Context) (*Graphviz, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &Graphviz{gv: gv}, nil
}

// Parse parses DOT text and checks that Graphviz accepts it as well.
func (e *Graphviz) Parse(data []byte) (Handle, error) {
	d, err := ParseDOT(data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := graphviz.ParseBytes(d.Bytes())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "graphviz rejected document")
	}
	g.Close()

	return &gvHandle{DOT: d}, nil
}

// Serialize returns the DOT text of the handle's current attribute state.
func (e *Graphviz) Serialize(h Handle) ([]byte, error) {
	gh, err := e.handle(h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "serialize")
	}
	return gh.Bytes(), nil
}

// Layout lays the handle out with the named layout engine.
func (e *Graphviz) Layout(h Handle, layoutEngine string) error {
	gh, err := e.handle(h)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLayout, err, "layout")
	}
	if gh.layout != nil {
		return errors.New(errors.ErrCodeLayout, "layout: previous layout still live")
	}
	if !slices.Contains(graphvizLayouts, layoutEngine) {
		return errors.New(errors.ErrCodeLayout, "layout: unknown layout engine %q", layoutEngine)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := graphviz.ParseBytes(gh.Bytes())
	if err != nil {
		return errors.Wrap(errors.ErrCodeLayout, err, "layout: prepare graph")
	}

	var buf bytes.Buffer
	e.gv.SetLayout(graphviz.Layout(layoutEngine))
	if err := e.gv.Render(context.Background(), g, graphviz.Format("dot"), &buf); err != nil {
		g.Close()
		return errors.Wrap(errors.ErrCodeLayout, err, "layout with %s", layoutEngine)
	}

	gh.layout = &gvLayout{graph: g, engine: layoutEngine, laidOut: buf.Bytes()}
	return nil
}

// FreeLayout releases the parsed graph backing the handle's layout.
func (e *Graphviz) FreeLayout(h Handle) {
	gh, ok := h.(*gvHandle)
	if !ok || gh.layout == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	gh.layout.graph.Close()
	gh.layout = nil
}

// LaidOut returns the layout-augmented DOT text of a laid-out handle.
func (e *Graphviz) LaidOut(h Handle) ([]byte, bool) {
	gh, ok := h.(*gvHandle)
	if !ok || gh.layout == nil {
		return nil, false
	}
	return gh.layout.laidOut, true
}

// Render encodes the laid-out handle.
func (e *Graphviz) Render(ctx context.Context, h Handle, format string) ([]byte, error) {
	l, err := e.renderable(h, format)
	if err != nil {
		return nil, err
	}
	if format == "dot" {
		return bytes.Clone(l.laidOut), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var buf bytes.Buffer
	e.gv.SetLayout(graphviz.Layout(l.engine))
	if err := e.gv.Render(ctx, l.graph, graphviz.Format(format), &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}
	return buf.Bytes(), nil
}

// RenderFile encodes the laid-out handle straight to path.
func (e *Graphviz) RenderFile(ctx context.Context, h Handle, format, path string) error {
	l, err := e.renderable(h, format)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.gv.SetLayout(graphviz.Layout(l.engine))
	if err := e.gv.RenderFilename(ctx, l.graph, graphviz.Format(format), path); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "render %s to %s", format, path)
	}
	return nil
}

// Plugins lists the layout engines or device plugins.
func (e *Graphviz) Plugins(kind Capability) []string {
	switch kind {
	case CapabilityLayout:
		return slices.Clone(graphvizLayouts)
	case CapabilityRender:
		return slices.Clone(graphvizFormats)
	default:
		return nil
	}
}

// Close shuts the Graphviz runtime down.
func (e *Graphviz) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gv.Close()
}

func (e *Graphviz) handle(h Handle) (*gvHandle, error) {
	gh, ok := h.(*gvHandle)
	if !ok {
		return nil, fmt.Errorf("handle %T was not created by this engine", h)
	}
	if gh.closed {
		return nil, fmt.Errorf("handle is closed")
	}
	return gh, nil
}

func (e *Graphviz) renderable(h Handle, format string) (*gvLayout, error) {
	gh, err := e.handle(h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}
	if !slices.Contains(graphvizFormats, format) {
		return nil, errors.New(errors.ErrCodeRender, "render: no device plugin for format %q", format)
	}
	if gh.layout == nil {
		return nil, errors.New(errors.ErrCodeRender, "render %s: document has no layout", format)
	}
	return gh.layout, nil
}

var _ Engine = (*Graphviz)(nil)
