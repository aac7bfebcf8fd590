package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/graph/formats/dot"

	"github.com/matzehuels/livedot/pkg/errors"
)

const sampleDOT = `digraph G {
  rankdir=TB;
  graph [bgcolor="transparent", label="Deps graph"];
  node [shape=box, style="rounded,filled"];
  edge [color=gray];
  a -> b;
  subgraph cluster_0 { node [shape=circle]; c; }
}`

func attrs(d *DOT, c Component) map[string]string {
	out := map[string]string{}
	for s := d.FirstAttribute(c); s != nil; s = d.NextAttribute(c, s) {
		out[s.Name()] = s.Value()
	}
	return out
}

func TestParseDOT_SymbolTables(t *testing.T) {
	d, err := ParseDOT([]byte(sampleDOT))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}

	if !d.Directed {
		t.Error("ParseDOT() lost digraph flag")
	}

	g := attrs(d, ComponentGraph)
	if g["rankdir"] != "TB" || g["bgcolor"] != "transparent" || g["label"] != "Deps graph" {
		t.Errorf("graph attrs = %v", g)
	}

	n := attrs(d, ComponentNode)
	if n["shape"] != "box" || n["style"] != "rounded,filled" {
		t.Errorf("node attrs = %v", n)
	}
	if _, ok := n["circle"]; ok {
		t.Error("subgraph attribute statements must not leak into the top-level table")
	}

	e := attrs(d, ComponentEdge)
	if e["color"] != "gray" {
		t.Errorf("edge attrs = %v", e)
	}
}

func TestParseDOT_LaterStatementWins(t *testing.T) {
	d, err := ParseDOT([]byte(`graph { node [shape=box]; node [shape=oval]; }`))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}
	if got := d.FindAttribute(ComponentNode, "shape").Value(); got != "oval" {
		t.Errorf("shape = %q, want %q", got, "oval")
	}
}

func TestParseDOT_Invalid(t *testing.T) {
	_, err := ParseDOT([]byte(`not valid DOT {{{`))
	if err == nil {
		t.Fatal("ParseDOT() should fail for invalid DOT")
	}
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("ParseDOT() error code = %v, want %v", errors.GetCode(err), errors.ErrCodeParse)
	}
}

func TestDOTBytes_RoundTrip(t *testing.T) {
	d, err := ParseDOT([]byte(sampleDOT))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}
	d.SetAttribute(ComponentGraph, "rankdir", "LR")
	d.SetAttribute(ComponentEdge, "color", "")
	d.SetAttribute(ComponentNode, "fontname", "Helvetica Neue")

	out := d.Bytes()
	text := string(out)
	if !strings.Contains(text, "a -> b") {
		t.Errorf("Bytes() lost edge statement:\n%s", text)
	}
	if !strings.Contains(text, "cluster_0") {
		t.Errorf("Bytes() lost subgraph:\n%s", text)
	}

	back, err := ParseDOT(out)
	if err != nil {
		t.Fatalf("re-parse error: %v\n%s", err, text)
	}

	if got := back.FindAttribute(ComponentGraph, "rankdir").Value(); got != "LR" {
		t.Errorf("rankdir after round trip = %q, want LR", got)
	}
	if got := back.FindAttribute(ComponentNode, "fontname").Value(); got != "Helvetica Neue" {
		t.Errorf("fontname after round trip = %q", got)
	}
	color := back.FindAttribute(ComponentEdge, "color")
	if color == nil {
		t.Fatal("empty attribute should stay declared after round trip")
	}
	if color.Value() != "" {
		t.Errorf("color after round trip = %q, want empty", color.Value())
	}
}

// statements renders the top-level statements of the first graph in out.
func statements(t *testing.T, out []byte) []string {
	t.Helper()
	f, err := dot.ParseBytes(out)
	if err != nil {
		t.Fatalf("re-parse error: %v\n%s", err, out)
	}
	var got []string
	for _, s := range f.Graphs[0].Stmts {
		got = append(got, s.String())
	}
	return got
}

func TestDOTBytes_KeepsStatementPositions(t *testing.T) {
	const src = `digraph { a; node [shape=box]; b; node [shape=circle]; c }`

	d, err := ParseDOT([]byte(src))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}
	if got := d.FindAttribute(ComponentNode, "shape").Value(); got != "circle" {
		t.Errorf("shape = %q, want circle", got)
	}

	want := []string{"a", "node [shape=box]", "b", "node [shape=circle]", "c"}
	if diff := cmp.Diff(want, statements(t, d.Bytes())); diff != "" {
		t.Errorf("unchanged round trip mismatch (-want +got):\n%s", diff)
	}

	d.SetAttribute(ComponentNode, "shape", "diamond")
	d.SetAttribute(ComponentNode, "color", "red")
	d.SetAttribute(ComponentGraph, "rankdir", "LR")

	want = []string{
		"node [color=red]",
		"graph [rankdir=LR]",
		"a",
		"node [shape=box]",
		"b",
		"node [shape=diamond]",
		"c",
	}
	if diff := cmp.Diff(want, statements(t, d.Bytes())); diff != "" {
		t.Errorf("edited round trip mismatch (-want +got):\n%s", diff)
	}

	d.SetAttribute(ComponentNode, "fontsize", "9")
	got := statements(t, d.Bytes())
	if got[0] != "node [color=red fontsize=9]" {
		t.Errorf("second new node attribute not merged: %v", got)
	}
}

func TestDOTSetAttribute_GraphAssignment(t *testing.T) {
	d, err := ParseDOT([]byte(`digraph { rankdir=TB; a -> b; graph [rankdir=BT] }`))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}
	d.SetAttribute(ComponentGraph, "rankdir", "LR")

	want := []string{"rankdir=TB", "a -> b", "graph [rankdir=LR]"}
	if diff := cmp.Diff(want, statements(t, d.Bytes())); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDOT_DeclaresAttributesInUse(t *testing.T) {
	d, err := ParseDOT([]byte(`digraph {
  edge [arrowhead=dot];
  a [label="A"];
  a -> b [color=red];
  subgraph s { node [fillcolor=blue]; rank=same; c }
  a -> { d [width=2] }
}`))
	if err != nil {
		t.Fatalf("ParseDOT() error: %v", err)
	}

	tests := []struct {
		comp Component
		name string
		want string
	}{
		{ComponentNode, "label", ""},
		{ComponentNode, "fillcolor", ""},
		{ComponentNode, "width", ""},
		{ComponentEdge, "color", ""},
		{ComponentEdge, "arrowhead", "dot"},
		{ComponentGraph, "rank", ""},
	}
	for _, tt := range tests {
		t.Run(tt.comp.String()+"/"+tt.name, func(t *testing.T) {
			s := d.FindAttribute(tt.comp, tt.name)
			if s == nil {
				t.Fatalf("%s attribute %q not declared", tt.comp, tt.name)
			}
			if s.Value() != tt.want {
				t.Errorf("value = %q, want %q", s.Value(), tt.want)
			}
		})
	}

	// Emptying an attribute declared only by use leaves the text alone.
	before := string(d.Bytes())
	d.SetAttribute(ComponentEdge, "color", "")
	if after := string(d.Bytes()); after != before {
		t.Errorf("Bytes() changed:\n%s\nwant:\n%s", after, before)
	}
}

func TestQuoteID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"LR", "LR"},
		{"_x1", "_x1"},
		{"1.5", "1.5"},
		{"-.5", "-.5"},
		{"", `""`},
		{"rounded,filled", `"rounded,filled"`},
		{`say "hi"`, `"say \"hi\""`},
		{"node", `"node"`},
		{"<b>bold</b>", "<b>bold</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := quoteID(tt.in); got != tt.want {
				t.Errorf("quoteID(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnquoteID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"LR", "LR"},
		{`"LR"`, "LR"},
		{`"say \"hi\""`, `say "hi"`},
		{"\"long\\\nline\"", "longline"},
		{`"a\nb"`, `a\nb`},
		{`"`, `"`},
	}
	for _, tt := range tests {
		if got := unquoteID(tt.in); got != tt.want {
			t.Errorf("unquoteID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseComponent(t *testing.T) {
	for _, c := range Components {
		got, ok := ParseComponent(c.String())
		if !ok || got != c {
			t.Errorf("ParseComponent(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseComponent("cluster"); ok {
		t.Error("ParseComponent(cluster) should fail")
	}
}
