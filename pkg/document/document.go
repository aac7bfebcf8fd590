package document

import (
	"context"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/observability"
	"github.com/matzehuels/livedot/pkg/render"
)

// ArgLayout is the render argument naming the layout engine. Setting it
// re-lays the document out.
const ArgLayout = "layout"

// Change is delivered to subscribers after every mutation.
type Change struct {
	Doc *Document

	// AffectsLayout is true when the mutation invalidated the layout.
	AffectsLayout bool

	// LayoutErr is the error of the re-layout triggered by the mutation, if
	// any. The mutating caller receives the same error.
	LayoutErr error

	// Reopened is set on the first Change of a document created by [Reopen].
	Reopened bool
}

type subscriber struct {
	id int
	fn func(Change)
}

// subscribers is shared by pointer so a subscription survives Reopen and
// its unsubscribe function keeps working.
type subscribers struct {
	list []subscriber
	next int
}

// Document owns a parsed graph document handle.
type Document struct {
	id   string
	path string
	opts options

	eng engine.Engine
	h   engine.Handle

	graph Table
	node  Table
	edge  Table

	args  map[string]string
	cache layoutCache

	subs *subscribers

	disposed bool
}

type options struct {
	args     map[string]string
	pipeline *render.Pipeline
	logger   *log.Logger
}

// Option configures a Document.
type Option func(*options)

// WithLayoutEngine sets the "layout" render argument.
func WithLayoutEngine(name string) Option {
	return func(o *options) { o.args[ArgLayout] = name }
}

// WithRenderArguments merges args into the render arguments.
func WithRenderArguments(args map[string]string) Option {
	return func(o *options) { maps.Copy(o.args, args) }
}

// WithPipeline sets the render pipeline. The default is render.New(eng).
func WithPipeline(p *render.Pipeline) Option { return func(o *options) { o.pipeline = p } }

// WithLogger sets the document logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// Open reads and parses the file at path. Read failures are IO_ERROR and
// parser rejections PARSE_ERROR; no document is returned in either case.
func Open(eng engine.Engine, path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	d, err := OpenBytes(eng, data, opts...)
	if err != nil {
		return nil, err
	}
	d.path = path
	d.opts.logger.Debug("opened document", "doc", d.id, "path", path)
	return d, nil
}

// OpenBytes parses an in-memory document.
func OpenBytes(eng engine.Engine, data []byte, opts ...Option) (*Document, error) {
	o := options{args: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pipeline == nil {
		o.pipeline = render.New(eng)
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if name := o.args[ArgLayout]; name != "" {
		if err := errors.ValidateEngineName(name); err != nil {
			return nil, err
		}
	}

	h, err := eng.Parse(data)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeParse, err, "parse document")
		}
		return nil, err
	}

	d := &Document{
		id:   uuid.NewString(),
		opts: o,
		eng:  eng,
		h:    h,
		args: maps.Clone(o.args),
		subs: &subscribers{},
	}
	d.graph = Table{doc: d, component: engine.ComponentGraph}
	d.node = Table{doc: d, component: engine.ComponentNode}
	d.edge = Table{doc: d, component: engine.ComponentEdge}
	d.cache = layoutCache{eng: eng, h: h, docID: d.id}
	return d, nil
}

// ID returns a random identifier used to correlate logs.
func (d *Document) ID() string { return d.id }

// Path returns the file the document was opened from, or "".
func (d *Document) Path() string { return d.path }

// Graph returns the graph-level attribute table.
func (d *Document) Graph() *Table { return &d.graph }

// Node returns the default node attribute table.
func (d *Document) Node() *Table { return &d.node }

// Edge returns the default edge attribute table.
func (d *Document) Edge() *Table { return &d.edge }

// Table returns the table of component c.
func (d *Document) Table(c engine.Component) *Table {
	switch c {
	case engine.ComponentNode:
		return &d.node
	case engine.ComponentEdge:
		return &d.edge
	default:
		return &d.graph
	}
}

// Formats lists the output formats the document can be rendered to.
func (d *Document) Formats() []string { return d.opts.pipeline.Formats() }

// State reports the artifact state.
func (d *Document) State() State {
	switch {
	case d.disposed:
		return StateDisposed
	case d.cache.valid():
		return StateValid
	default:
		return StateInvalid
	}
}

// LayoutEngine returns the configured layout engine, or "".
func (d *Document) LayoutEngine() string { return d.args[ArgLayout] }

// RenderArgument returns one render argument.
func (d *Document) RenderArgument(name string) (string, bool) {
	v, ok := d.args[name]
	return v, ok
}

// RenderArguments returns a copy of the render arguments.
func (d *Document) RenderArguments() map[string]string {
	return maps.Clone(d.args)
}

// SetRenderArgument sets a render argument; an empty value deletes it.
// Changing "layout" re-lays the document out and emits a Change; the
// returned error is then the LAYOUT_ERROR of that layout, if any.
func (d *Document) SetRenderArgument(name, value string) error {
	if err := errors.ValidateAttributeName(name); err != nil {
		return err
	}
	if d.disposed {
		return errDisposed()
	}
	if name == ArgLayout && value != "" {
		if err := errors.ValidateEngineName(value); err != nil {
			return err
		}
	}

	if value == "" {
		delete(d.args, name)
	} else {
		d.args[name] = value
	}

	if name == ArgLayout {
		return d.noteChanged(true)
	}
	return nil
}

// Subscribe registers fn for Change notifications and returns a function
// that unregisters it.
func (d *Document) Subscribe(fn func(Change)) (unsubscribe func()) {
	subs := d.subs
	subs.next++
	id := subs.next
	subs.list = append(subs.list, subscriber{id: id, fn: fn})
	return func() {
		subs.list = slices.DeleteFunc(subs.list, func(s subscriber) bool { return s.id == id })
	}
}

// noteChanged is the single entry point for mutations. A layout-affecting
// change frees the artifact and, with a layout engine configured, builds a
// new one. Subscribers are notified afterwards in every case.
func (d *Document) noteChanged(affectsLayout bool) error {
	var err error
	if affectsLayout {
		if name := d.LayoutEngine(); name != "" {
			err = d.cache.regenerate(name)
			if err != nil {
				d.opts.logger.Warn("layout failed", "doc", d.id, "engine", name, "err", err)
			}
		} else {
			d.cache.invalidate()
		}
	}
	d.emit(Change{Doc: d, AffectsLayout: affectsLayout, LayoutErr: err})
	return err
}

func (d *Document) emit(c Change) {
	observability.Document().OnChanged(context.Background(), d.id, c.AffectsLayout)
	for _, s := range slices.Clone(d.subs.list) {
		s.fn(c)
	}
}

// Render encodes the document in format. An invalid artifact is rebuilt
// first when a layout engine is configured.
func (d *Document) Render(ctx context.Context, format string) ([]byte, error) {
	if err := d.ensureLayout(format); err != nil {
		return nil, err
	}
	if data, ok := d.cache.output(format); ok {
		return data, nil
	}

	data, err := d.opts.pipeline.Render(render.WithLabel(ctx, d.id), d.h, format)
	if err != nil {
		return nil, err
	}
	d.cache.remember(format, data)
	return data, nil
}

// RenderFile encodes the document in format and writes it to path.
func (d *Document) RenderFile(ctx context.Context, format, path string) error {
	if err := d.ensureLayout(format); err != nil {
		return err
	}
	if data, ok := d.cache.output(format); ok {
		if err := render.WriteFileAtomic(path, data); err != nil {
			return errors.Wrap(errors.ErrCodeRender, err, "write %s", path)
		}
		return nil
	}
	return d.opts.pipeline.RenderFile(render.WithLabel(ctx, d.id), d.h, format, path)
}

func (d *Document) ensureLayout(format string) error {
	if d.disposed {
		return errDisposed()
	}
	if d.cache.valid() {
		return nil
	}
	name := d.LayoutEngine()
	if name == "" {
		return errors.New(errors.ErrCodeRender, "render %s: no layout engine configured", format)
	}
	if err := d.cache.regenerate(name); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}
	return nil
}

// Bytes serializes the current attribute state.
func (d *Document) Bytes() ([]byte, error) {
	if d.disposed {
		return nil, errDisposed()
	}
	data, err := d.eng.Serialize(d.h)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeIO, err, "serialize")
		}
		return nil, err
	}
	return data, nil
}

// Save writes the serialized document to path through a temporary file.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := render.WriteFileAtomic(path, data); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "save %s", path)
	}
	d.opts.logger.Debug("saved document", "doc", d.id, "path", path)
	return nil
}

// Dispose releases the handle and then the layout artifact. Further calls
// are no-ops.
func (d *Document) Dispose() {
	if d.disposed {
		return
	}
	d.disposed = true
	if err := d.h.Close(); err != nil {
		d.opts.logger.Warn("close handle", "doc", d.id, "err", err)
	}
	d.cache.invalidate()
	d.subs = &subscribers{}
	d.opts.logger.Debug("disposed document", "doc", d.id)
}

// live returns the handle, or nil once disposed.
func (d *Document) live() engine.Handle {
	if d.disposed {
		return nil
	}
	return d.h
}

func errDisposed() error {
	return errors.New(errors.ErrCodeDisposed, "document disposed")
}
