// Package pkg provides the libraries behind livedot, a live attribute mirror
// and render cache for Graphviz DOT files.
//
// # Overview
//
// livedot keeps the graph, node and edge attribute tables of a DOT document
// editable in memory, lays the document out at most once per change, and
// keeps a rendered preview current while another program rewrites the file.
// The packages are organized in layers:
//
//  1. [engine] - The graph engine seam (parse, attribute symbols, layout, render)
//  2. [document] - Attribute tables, the layout cache and change notification
//  3. [watcher] - External change detection with retry on locked files
//  4. [live] - A document, its watcher and an owner loop tied together
//  5. [render], [pipeline], [cache] - Output formats, batch rendering and caching
//
// # Architecture
//
// The data flow for a watched file:
//
//	file on disk
//	     ↓
//	[watcher] (timestamp check, retry while locked)
//	     ↓
//	[document] (Reopen, attribute tables, layout cache)
//	     ↓
//	[render] (format plugins, SVG normalization, PDF conversion)
//	     ↓
//	preview bytes / output file
//
// Every mutation of a document happens on one goroutine, the owner [loop].
// Watcher callbacks and HTTP handlers post work to it instead of locking.
//
// # Quick Start
//
// Render a file with a cached batch run:
//
//	import (
//	    "github.com/matzehuels/livedot/pkg/cache"
//	    "github.com/matzehuels/livedot/pkg/engine"
//	    "github.com/matzehuels/livedot/pkg/pipeline"
//	)
//
//	eng, _ := engine.NewGraphviz(ctx)
//	defer eng.Close()
//	c, _ := cache.NewFileCache(dir)
//	r := pipeline.NewRunner(eng, c, nil, nil)
//	res, err := r.Execute(ctx, data, pipeline.Options{Formats: []string{"svg"}})
//
// Edit attributes in place:
//
//	d, _ := document.Open(eng, "graph.dot")
//	defer d.Dispose()
//	d.Graph().Set("rankdir", "LR")
//	d.Save("graph.dot")
//
// Follow a file:
//
//	s, _ := live.Open(eng, "graph.dot", "svg", live.WithOutputFile("graph.svg"))
//	err := s.Run(ctx)
//
// # Supporting Packages
//
//   - [errors]: Coded errors (PARSE_ERROR, LAYOUT_ERROR, ...) and input validation
//   - [config]: TOML configuration file
//   - [observability]: Hooks for layout, render, watch and cache events
//   - [buildinfo]: Version information set at link time
//
// [engine]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/engine
// [document]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/document
// [watcher]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/watcher
// [live]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/live
// [loop]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/loop
// [render]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/errors
// [config]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/livedot/pkg/buildinfo
package pkg
