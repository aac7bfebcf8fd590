// Package pipeline renders DOT files in one shot, with output caching.
//
// This is the batch counterpart of a live session: parse, apply attribute
// overrides, lay out once, render every requested format. Outputs are cached
// by the serialized document (after overrides), the layout engine, the
// render arguments and the format, so an unchanged file renders without
// touching the engine at all.
//
// # Usage
//
//	runner := pipeline.NewRunner(eng, cache, nil, logger)
//	result, err := runner.Execute(ctx, data, pipeline.Options{
//	    Layout:  "neato",
//	    Formats: []string{"svg", "png"},
//	    Attrs:   []pipeline.Assignment{{Component: engine.ComponentGraph, Name: "rankdir", Value: "LR"}},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"maps"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultLayout is the layout engine used when none is given.
	DefaultLayout = "dot"

	// DefaultFormat is the output format used when none is given.
	DefaultFormat = "svg"
)

// =============================================================================
// Options
// =============================================================================

// Assignment sets one attribute before layout, like Graphviz's -G, -N and
// -E flags.
type Assignment struct {
	Component engine.Component `json:"component"`
	Name      string           `json:"name"`
	Value     string           `json:"value"`
}

// ParseAssignment parses "name=value" for component c. A bare "name" sets
// the value "true", as Graphviz does.
func ParseAssignment(c engine.Component, s string) (Assignment, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		value = "true"
	}
	if err := errors.ValidateAttributeName(name); err != nil {
		return Assignment{}, err
	}
	return Assignment{Component: c, Name: name, Value: value}, nil
}

// Options configures one run.
type Options struct {
	Layout       string            `json:"layout,omitempty"`
	Formats      []string          `json:"formats,omitempty"`
	Args         map[string]string `json:"args,omitempty"`
	Attrs        []Assignment      `json:"attrs,omitempty"`
	NormalizeSVG bool              `json:"normalize_svg,omitempty"`

	// Refresh ignores cached outputs; fresh results are still stored.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults fills in defaults and validates the options. A
// "layout" entry in Args is moved to Layout unless Layout is already set.
func (o *Options) ValidateAndSetDefaults() error {
	o.Args = maps.Clone(o.Args)
	if name, ok := o.Args[document.ArgLayout]; ok {
		if o.Layout == "" {
			o.Layout = name
		}
		delete(o.Args, document.ArgLayout)
	}
	if o.Layout == "" {
		o.Layout = DefaultLayout
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if err := errors.ValidateEngineName(o.Layout); err != nil {
		return err
	}
	seen := make(map[string]bool, len(o.Formats))
	for _, f := range o.Formats {
		if err := errors.ValidateFormat(f); err != nil {
			return err
		}
		if seen[f] {
			return errors.New(errors.ErrCodeInvalidFormat, "format %q requested twice", f)
		}
		seen[f] = true
	}
	for name := range o.Args {
		if err := errors.ValidateAttributeName(name); err != nil {
			return err
		}
	}
	for _, a := range o.Attrs {
		if err := errors.ValidateAttributeName(a.Name); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of one run.
type Result struct {
	// DocHash is the hash of the serialized document after overrides.
	DocHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Cached reports, per format, whether the output came from the cache.
	Cached map[string]bool

	Stats Stats
}

// AllCached reports whether no format needed the engine.
func (r *Result) AllCached() bool {
	for _, hit := range r.Cached {
		if !hit {
			return false
		}
	}
	return true
}

// Stats contains timing information.
type Stats struct {
	ParseTime  time.Duration
	RenderTime time.Duration
}
