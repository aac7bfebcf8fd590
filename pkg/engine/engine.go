// Package engine defines the narrow capability surface livedot needs from a
// graph layout and rendering engine, and provides a Graphviz implementation.
//
// # Capabilities
//
// An [Engine] parses DOT text into an opaque [Handle], serializes it back,
// computes a layout for a named layout engine, frees that layout, renders a
// laid-out handle to a device plugin (output format), and lists the plugins it
// provides. Handles expose the three attribute symbol tables of a graph
// (graph-level, default node, default edge) through find/first/next/set
// primitives modelled on Graphviz's agattr API.
//
// # Ownership
//
// A handle is exclusively owned by whoever parsed it. Engines keep at most one
// layout per handle; callers must call [Engine.FreeLayout] before laying a
// handle out again and before discarding it.
//
// # Implementations
//
//   - [Graphviz]: go-graphviz (WebAssembly Graphviz), used by the CLI
//   - enginetest.Engine: deterministic in-memory engine for tests
package engine

import (
	"context"
	"fmt"
)

// Component selects one of the three attribute symbol tables of a document.
type Component int

const (
	// ComponentGraph holds graph-level attributes (rankdir, bgcolor, ...).
	ComponentGraph Component = iota
	// ComponentNode holds the default node prototype (node [...]).
	ComponentNode
	// ComponentEdge holds the default edge prototype (edge [...]).
	ComponentEdge

	numComponents
)

// Components lists every component in declaration order.
var Components = []Component{ComponentGraph, ComponentNode, ComponentEdge}

// String returns the DOT keyword for the component.
func (c Component) String() string {
	switch c {
	case ComponentGraph:
		return "graph"
	case ComponentNode:
		return "node"
	case ComponentEdge:
		return "edge"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// ParseComponent maps "graph", "node" or "edge" to a Component.
func ParseComponent(s string) (Component, bool) {
	for _, c := range Components {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Capability is a plugin kind reported by [Engine.Plugins].
type Capability string

// Plugin kinds.
const (
	CapabilityLayout Capability = "layout"
	CapabilityRender Capability = "render"
)

// Handle is an opaque parsed document.
//
// The attribute primitives never fail for well-formed names. SetAttribute
// creates the symbol when it does not exist; symbols are never removed.
type Handle interface {
	FindAttribute(c Component, name string) *Symbol
	FirstAttribute(c Component) *Symbol
	NextAttribute(c Component, prev *Symbol) *Symbol
	SetAttribute(c Component, name, value string) *Symbol

	// Close releases the handle. It does not free a layout; see Engine.FreeLayout.
	Close() error
}

// Engine is the graph engine collaborator.
type Engine interface {
	// Parse builds a handle from DOT text. Fails with PARSE_ERROR.
	Parse(data []byte) (Handle, error)

	// Serialize renders the handle's current state back to DOT text.
	Serialize(h Handle) ([]byte, error)

	// Layout computes a layout with the named layout engine. Fails with LAYOUT_ERROR.
	Layout(h Handle, layoutEngine string) error

	// FreeLayout releases the handle's layout, if any. Safe to call on a
	// closed handle or a handle without layout.
	FreeLayout(h Handle)

	// Render encodes a laid-out handle with the given device plugin.
	// Fails with RENDER_ERROR.
	Render(ctx context.Context, h Handle, format string) ([]byte, error)

	// RenderFile is Render writing straight to path.
	RenderFile(ctx context.Context, h Handle, format, path string) error

	// Plugins lists the plugin names for a capability, sorted.
	Plugins(kind Capability) []string

	// Close releases engine resources.
	Close() error
}
