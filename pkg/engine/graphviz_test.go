package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/livedot/pkg/errors"
)

func newTestGraphviz(t *testing.T) *Graphviz {
	t.Helper()
	gv, err := NewGraphviz(context.Background())
	if err != nil {
		t.Fatalf("NewGraphviz() error: %v", err)
	}
	t.Cleanup(func() { gv.Close() })
	return gv
}

func TestGraphviz_LayoutAndRender(t *testing.T) {
	gv := newTestGraphviz(t)
	ctx := context.Background()

	h, err := gv.Parse([]byte(`digraph G { a -> b; }`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	defer h.Close()

	if err := gv.Layout(h, "dot"); err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	defer gv.FreeLayout(h)

	svg, err := gv.Render(ctx, h, "svg")
	if err != nil {
		t.Fatalf("Render(svg) error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("Render(svg) output is not SVG")
	}

	laidOut, err := gv.Render(ctx, h, "dot")
	if err != nil {
		t.Fatalf("Render(dot) error: %v", err)
	}
	if !bytes.Contains(laidOut, []byte("pos=")) {
		t.Error("Render(dot) output carries no layout positions")
	}
}

func TestGraphviz_RenderFile(t *testing.T) {
	gv := newTestGraphviz(t)

	h, err := gv.Parse([]byte(`graph { a -- b -- c; }`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if err := gv.Layout(h, "neato"); err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	defer gv.FreeLayout(h)

	path := filepath.Join(t.TempDir(), "out.svg")
	if err := gv.RenderFile(context.Background(), h, "svg", path); err != nil {
		t.Fatalf("RenderFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("RenderFile() did not write SVG")
	}
}

func TestGraphviz_Errors(t *testing.T) {
	gv := newTestGraphviz(t)
	ctx := context.Background()

	if _, err := gv.Parse([]byte(`digraph {`)); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("Parse(invalid) error = %v, want %s", err, errors.ErrCodeParse)
	}

	h, err := gv.Parse([]byte(`digraph { a; }`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if _, err := gv.Render(ctx, h, "svg"); !errors.Is(err, errors.ErrCodeRender) {
		t.Errorf("Render() without layout error = %v, want %s", err, errors.ErrCodeRender)
	}
	if err := gv.Layout(h, "nosuchengine"); !errors.Is(err, errors.ErrCodeLayout) {
		t.Errorf("Layout(unknown) error = %v, want %s", err, errors.ErrCodeLayout)
	}

	if err := gv.Layout(h, "dot"); err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	if err := gv.Layout(h, "dot"); !errors.Is(err, errors.ErrCodeLayout) {
		t.Errorf("second Layout() without free error = %v, want %s", err, errors.ErrCodeLayout)
	}
	if _, err := gv.Render(ctx, h, "nosuchformat"); !errors.Is(err, errors.ErrCodeRender) {
		t.Errorf("Render(unknown format) error = %v, want %s", err, errors.ErrCodeRender)
	}

	gv.FreeLayout(h)
	if _, ok := gv.LaidOut(h); ok {
		t.Error("LaidOut() should report false after FreeLayout")
	}
	gv.FreeLayout(h) // no-op

	h.Close()
	gv.FreeLayout(h)
	if err := gv.Layout(h, "dot"); err == nil {
		t.Error("Layout() on closed handle should fail")
	}
}

func TestGraphviz_AttributesReachLayout(t *testing.T) {
	gv := newTestGraphviz(t)
	ctx := context.Background()

	h, err := gv.Parse([]byte(`digraph { a -> b; }`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	h.SetAttribute(ComponentNode, "shape", "box")

	if err := gv.Layout(h, "dot"); err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	defer gv.FreeLayout(h)

	out, err := gv.Render(ctx, h, "dot")
	if err != nil {
		t.Fatalf("Render(dot) error: %v", err)
	}
	if !bytes.Contains(out, []byte("shape=box")) {
		t.Errorf("laid-out DOT does not carry node shape:\n%s", out)
	}
}

func TestGraphviz_Plugins(t *testing.T) {
	gv := newTestGraphviz(t)

	layouts := gv.Plugins(CapabilityLayout)
	formats := gv.Plugins(CapabilityRender)
	if len(layouts) == 0 || len(formats) == 0 {
		t.Fatalf("Plugins() = %v / %v, want non-empty", layouts, formats)
	}

	// Callers must not be able to mutate the known lists.
	layouts[0] = "mutated"
	if gv.Plugins(CapabilityLayout)[0] == "mutated" {
		t.Error("Plugins() returned shared slice")
	}
}
