package document

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/observability"
)

// State is the lifecycle state of a document's layout artifact.
type State int

const (
	// StateInvalid means no layout artifact is alive.
	StateInvalid State = iota
	// StateValid means the artifact matches the current attribute state.
	StateValid
	// StateDisposed is terminal.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "valid"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// layoutCache tracks the single layout artifact of one handle.
//
// live mirrors whether the engine holds a layout for the handle and is
// cleared exactly once per successful Layout call, by FreeLayout.
type layoutCache struct {
	eng   engine.Engine
	h     engine.Handle
	docID string

	live    bool
	engine  string
	outputs map[string][]byte
}

// invalidate frees the current artifact, if any.
func (c *layoutCache) invalidate() {
	if c.live {
		c.eng.FreeLayout(c.h)
		c.live = false
	}
	c.engine = ""
	c.outputs = nil
}

// regenerate replaces the artifact with a fresh layout. The previous
// artifact is freed before the engine is asked for a new one.
func (c *layoutCache) regenerate(layoutEngine string) error {
	c.invalidate()

	ctx := context.Background()
	hooks := observability.Document()
	hooks.OnLayoutStart(ctx, c.docID, layoutEngine)
	start := time.Now()

	err := c.eng.Layout(c.h, layoutEngine)
	if err != nil && !errors.Is(err, errors.ErrCodeLayout) {
		err = errors.Wrap(errors.ErrCodeLayout, err, "layout with %s", layoutEngine)
	}
	hooks.OnLayoutComplete(ctx, c.docID, layoutEngine, time.Since(start), err)
	if err != nil {
		return err
	}

	c.live = true
	c.engine = layoutEngine
	c.outputs = make(map[string][]byte)
	return nil
}

func (c *layoutCache) valid() bool { return c.live }

func (c *layoutCache) output(format string) ([]byte, bool) {
	data, ok := c.outputs[format]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

func (c *layoutCache) remember(format string, data []byte) {
	if c.outputs != nil {
		c.outputs[format] = bytes.Clone(data)
	}
}
