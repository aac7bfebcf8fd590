package engine

import (
	"regexp"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/formats/dot"
	"gonum.org/v1/gonum/graph/formats/dot/ast"

	"github.com/matzehuels/livedot/pkg/errors"
)

// DOT is a parsed DOT document mirrored into its three attribute symbol
// tables.
//
// Top-level attribute statements (graph [...], name=value, node [...],
// edge [...]) are folded into the symbol tables in order of appearance, so a
// later statement overrides an earlier one for the same name. The statements
// themselves stay where they were written: a node [...] default only covers
// the nodes declared after it, and serialization keeps that meaning.
//
// Attributes that only appear on individual statements (a -> b [color=red])
// or inside subgraphs are declared with an empty value, the way Graphviz
// declares them in the root graph.
type DOT struct {
	Strict   bool
	Directed bool
	ID       string

	tables [numComponents]*SymbolTable
	body   []ast.Stmt
	rest   []*ast.Graph

	// added holds the statements SetAttribute inserted for names the body
	// never assigned, one per component, at the front of the body.
	added [numComponents]*ast.AttrStmt
}

// ParseDOT parses DOT text. Only the first graph of a multi-graph file is
// mirrored; the others are kept verbatim for serialization.
func ParseDOT(data []byte) (*DOT, error) {
	f, err := dot.ParseBytes(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse DOT")
	}
	if len(f.Graphs) == 0 {
		return nil, errors.New(errors.ErrCodeParse, "parse DOT: no graph found")
	}

	g := f.Graphs[0]
	d := &DOT{
		Strict:   g.Strict,
		Directed: g.Directed,
		ID:       g.ID,
		body:     g.Stmts,
		rest:     f.Graphs[1:],
	}
	for i := range d.tables {
		d.tables[i] = NewSymbolTable()
	}

	for _, stmt := range g.Stmts {
		switch s := stmt.(type) {
		case *ast.Attr:
			d.tables[ComponentGraph].Set(unquoteID(s.Key), unquoteID(s.Val))
		case *ast.AttrStmt:
			t := d.tables[componentOf(s.Kind)]
			for _, a := range s.Attrs {
				t.Set(unquoteID(a.Key), unquoteID(a.Val))
			}
		}
	}
	d.declareUsed(g.Stmts, true)
	return d, nil
}

// declareUsed declares every attribute name used by stmts that the
// top-level attribute statements did not already assign.
func (d *DOT) declareUsed(stmts []ast.Stmt, top bool) {
	declare := func(c Component, attrs []*ast.Attr) {
		for _, a := range attrs {
			d.tables[c].Declare(unquoteID(a.Key))
		}
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.NodeStmt:
			declare(ComponentNode, s.Attrs)
		case *ast.EdgeStmt:
			declare(ComponentEdge, s.Attrs)
			d.declareVertex(s.From)
			for e := s.To; e != nil; e = e.To {
				d.declareVertex(e.Vertex)
			}
		case *ast.Subgraph:
			d.declareUsed(s.Stmts, false)
		case *ast.AttrStmt:
			if !top {
				declare(componentOf(s.Kind), s.Attrs)
			}
		case *ast.Attr:
			if !top {
				d.tables[ComponentGraph].Declare(unquoteID(s.Key))
			}
		}
	}
}

func (d *DOT) declareVertex(v ast.Vertex) {
	if sg, ok := v.(*ast.Subgraph); ok {
		d.declareUsed(sg.Stmts, false)
	}
}

func componentOf(k ast.Kind) Component {
	switch k {
	case ast.NodeKind:
		return ComponentNode
	case ast.EdgeKind:
		return ComponentEdge
	default:
		return ComponentGraph
	}
}

func kindOf(c Component) ast.Kind {
	switch c {
	case ComponentNode:
		return ast.NodeKind
	case ComponentEdge:
		return ast.EdgeKind
	default:
		return ast.GraphKind
	}
}

// Table returns the symbol table of a component. Writes must go through
// SetAttribute so the statement body follows the table.
func (d *DOT) Table(c Component) *SymbolTable {
	return d.tables[c]
}

// FindAttribute implements the Handle attribute primitives.
func (d *DOT) FindAttribute(c Component, name string) *Symbol {
	return d.tables[c].Find(name)
}

// FirstAttribute implements the Handle attribute primitives.
func (d *DOT) FirstAttribute(c Component) *Symbol {
	return d.tables[c].First()
}

// NextAttribute implements the Handle attribute primitives.
func (d *DOT) NextAttribute(c Component, prev *Symbol) *Symbol {
	return d.tables[c].Next(prev)
}

// SetAttribute implements the Handle attribute primitives.
//
// The last top-level statement assigning name is rewritten in place, so
// nodes and edges declared before it keep the defaults they had. A name no
// top-level statement assigns is added in a statement at the front of the
// body and applies to the whole graph. Emptying a name that was only
// declared by use leaves the body alone.
func (d *DOT) SetAttribute(c Component, name, value string) *Symbol {
	existed := d.tables[c].Find(name) != nil
	s := d.tables[c].Set(name, value)

	if a := d.lastAssignment(c, name); a != nil {
		a.Val = quoteID(value)
		return s
	}
	if existed && value == "" {
		return s
	}
	attr := &ast.Attr{Key: quoteID(name), Val: quoteID(value)}
	if st := d.added[c]; st != nil {
		st.Attrs = append(st.Attrs, attr)
		return s
	}
	st := &ast.AttrStmt{Kind: kindOf(c), Attrs: []*ast.Attr{attr}}
	d.added[c] = st
	n := 0
	for _, a := range d.added {
		if a != nil {
			n++
		}
	}
	d.body = slices.Insert(d.body, n-1, ast.Stmt(st))
	return s
}

// lastAssignment returns the attribute of the last top-level statement that
// assigns name for component c, or nil.
func (d *DOT) lastAssignment(c Component, name string) *ast.Attr {
	for i := len(d.body) - 1; i >= 0; i-- {
		switch s := d.body[i].(type) {
		case *ast.Attr:
			if c == ComponentGraph && unquoteID(s.Key) == name {
				return s
			}
		case *ast.AttrStmt:
			if componentOf(s.Kind) != c {
				continue
			}
			for j := len(s.Attrs) - 1; j >= 0; j-- {
				if unquoteID(s.Attrs[j].Key) == name {
					return s.Attrs[j]
				}
			}
		}
	}
	return nil
}

// Bytes serializes the document with every statement in its original place.
func (d *DOT) Bytes() []byte {
	g := &ast.Graph{Strict: d.Strict, Directed: d.Directed, ID: d.ID, Stmts: d.body}
	f := &ast.File{Graphs: append([]*ast.Graph{g}, d.rest...)}
	return []byte(f.String() + "\n")
}

var (
	plainIDRe   = regexp.MustCompile(`^[A-Za-z_\x{80}-\x{10FFFF}][A-Za-z_0-9\x{80}-\x{10FFFF}]*$`)
	numeralIDRe = regexp.MustCompile(`^-?(\.[0-9]+|[0-9]+(\.[0-9]*)?)$`)
)

var dotKeywords = map[string]bool{
	"node": true, "edge": true, "graph": true,
	"digraph": true, "subgraph": true, "strict": true,
}

// quoteID writes s as a DOT ID. HTML-like values (<...>) are written as-is.
func quoteID(s string) string {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s
	}
	if (plainIDRe.MatchString(s) && !dotKeywords[strings.ToLower(s)]) || numeralIDRe.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// unquoteID strips DOT double quotes and line continuations. Other escapes
// (\n, \l, \N, ...) are Graphviz escString syntax and are kept.
func unquoteID(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, "\\\r\n", "")
	s = strings.ReplaceAll(s, "\\\n", "")
	return strings.ReplaceAll(s, `\"`, `"`)
}
