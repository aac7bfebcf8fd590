// Package render turns laid-out documents into output bytes.
//
// # Overview
//
// A [Pipeline] is a thin facade over an [engine.Engine]: given a handle that
// already carries a layout and a format name, it returns an in-memory buffer
// or writes a file. It does not cache and it never lays a document out; the
// document package decides when a render is needed.
//
// # Formats
//
// The formats a pipeline offers are the engine's device plugins plus "pdf",
// which is produced by converting the engine's SVG output with the external
// rsvg-convert tool (from librsvg):
//
//	p := render.New(eng, render.WithNormalizeSVG())
//	svg, err := p.Render(ctx, h, "svg")
//	pdf, err := p.Render(ctx, h, "pdf")
//
// [ToPDF] and [ToPNG] are also usable on any SVG buffer.
//
// # Errors
//
// Every failure is a RENDER_ERROR carrying the engine's diagnostic.
package render
