package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/engine/enginetest"
	"github.com/matzehuels/livedot/pkg/errors"
)

const testDOT = "digraph G {\n\tnode [shape=box];\n\ta -> b;\n}\n"

// testCLI is a CLI wired to the fake engine with a private config and cache.
type testCLI struct {
	*CLI
	eng    *enginetest.Engine
	out    *bytes.Buffer
	config string
	dir    string
}

func newTestCLI(t *testing.T, extraConfig string) *testCLI {
	t.Helper()
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	config := filepath.Join(dir, "config.toml")
	data := "[cache]\ndir = " + `"` + filepath.ToSlash(cacheDir) + `"` + "\n" + extraConfig
	if err := os.WriteFile(config, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := enginetest.New()
	out := &bytes.Buffer{}
	c := New(io.Discard, LogInfo)
	c.Out = out
	c.interactive = false
	c.NewEngine = func(context.Context) (engine.Engine, error) { return eng, nil }
	return &testCLI{CLI: c, eng: eng, out: out, config: config, dir: dir}
}

func (tc *testCLI) run(args ...string) error {
	tc.out.Reset()
	root := tc.RootCommand()
	root.SetArgs(append([]string{"--config", tc.config}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func (tc *testCLI) writeDOT(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(tc.dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty uses fallback", "", []string{"svg"}},
		{"single format", "png", []string{"png"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"spaces and empties", " svg , ,png", []string{"svg", "png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseFormats(tt.input, "svg")); diff != "" {
				t.Errorf("parseFormats(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	if got := parseArgs(nil); got != nil {
		t.Errorf("parseArgs(nil) = %v, want nil", got)
	}
	got := parseArgs([]string{"dpi=144", "label=a=b", "flag"})
	want := map[string]string{"dpi": "144", "label": "a=b", "flag": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "dir/graph.dot", "dir/graph"},
		{"", "graph.gv", "graph"},
		{"out.svg", "graph.dot", "out"},
		{"out", "graph.dot", "out"},
		{"out.v2", "graph.dot", "out.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	tc := newTestCLI(t, "")
	input := tc.writeDOT(t, "graph.dot", testDOT)

	if err := tc.run("render", input, "-f", "svg,png"); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, format := range []string{"svg", "png"} {
		got := readFile(t, filepath.Join(tc.dir, "graph."+format))
		if !strings.HasPrefix(got, format+"/dot\n") {
			t.Errorf("graph.%s = %q", format, got)
		}
	}
	if !strings.Contains(tc.out.String(), iconFresh) {
		t.Errorf("first render should report fresh outputs:\n%s", tc.out.String())
	}
	if got := tc.eng.Stats().Layouts; got != 1 {
		t.Errorf("layouts = %d, want 1", got)
	}

	if err := tc.run("render", input, "-f", "svg,png"); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if strings.Contains(tc.out.String(), iconFresh) {
		t.Errorf("second render should be served from cache:\n%s", tc.out.String())
	}
	if got := tc.eng.Stats().Layouts; got != 1 {
		t.Errorf("cached render laid out again: layouts = %d", got)
	}

	if err := tc.run("render", input, "-f", "svg", "--no-cache"); err != nil {
		t.Fatalf("uncached render: %v", err)
	}
	if got := tc.eng.Stats().Layouts; got != 2 {
		t.Errorf("--no-cache should lay out: layouts = %d, want 2", got)
	}
}

func TestRenderCommandOverrides(t *testing.T) {
	tc := newTestCLI(t, "")
	input := tc.writeDOT(t, "graph.dot", testDOT)
	output := filepath.Join(tc.dir, "out.dot")

	err := tc.run("render", input, "-f", "dot", "-o", output, "-K", "neato", "-G", "rankdir=LR", "-N", "shape=ellipse")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := readFile(t, output)
	for _, want := range []string{"dot/neato", "rankdir=LR", "shape=ellipse"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
	if readFile(t, input) != testDOT {
		t.Error("render modified its input")
	}
}

func TestRenderCommandConfigDefaults(t *testing.T) {
	tc := newTestCLI(t, "[render]\nlayout = \"neato\"\nformat = \"png\"\n")
	input := tc.writeDOT(t, "graph.dot", testDOT)

	if err := tc.run("render", input); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := readFile(t, filepath.Join(tc.dir, "graph.png")); !strings.HasPrefix(got, "png/neato") {
		t.Errorf("graph.png = %q", got)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		dot      string
		args     []string
		wantCode errors.Code
	}{
		{"parse error", "digraph {", nil, errors.ErrCodeParse},
		{"would overwrite input", testDOT, []string{"-f", "dot"}, errors.ErrCodeInvalidPath},
		{"bad format", testDOT, []string{"-f", "SVG!"}, errors.ErrCodeInvalidFormat},
		{"bad attribute", testDOT, []string{"-G", "=LR"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t, "")
			input := tc.writeDOT(t, "graph.dot", tt.dot)
			err := tc.run(append([]string{"render", input}, tt.args...)...)
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		tc := newTestCLI(t, "")
		err := tc.run("render", filepath.Join(tc.dir, "missing.dot"))
		if !errors.Is(err, errors.ErrCodeIO) {
			t.Errorf("error = %v, want %s", err, errors.ErrCodeIO)
		}
	})

	t.Run("output with several inputs", func(t *testing.T) {
		tc := newTestCLI(t, "")
		a := tc.writeDOT(t, "a.dot", testDOT)
		b := tc.writeDOT(t, "b.dot", testDOT)
		err := tc.run("render", a, b, "-o", "out.svg")
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("error = %v, want %s", err, errors.ErrCodeInvalidInput)
		}
	})
}
