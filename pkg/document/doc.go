// Package document wraps a parsed graph document and keeps a single cached
// layout for it.
//
// # Overview
//
// A [Document] owns an [engine.Handle] exclusively. Its three attribute
// symbol tables (graph-level, default node, default edge) are exposed as
// [Table] values with map-like semantics:
//
//	doc, err := document.Open(eng, "deps.dot", document.WithLayoutEngine("dot"))
//	if err != nil {
//	    return err
//	}
//	defer doc.Dispose()
//
//	if _, ok := doc.Graph().Get("rankdir"); !ok {
//	    err = doc.Graph().Set("rankdir", "LR") // re-lays out, then emits Changed
//	}
//
// An attribute whose value is the empty string counts as absent for lookup
// and enumeration but remains declared in the symbol table. Writes never
// remove a symbol.
//
// # Change notification
//
// Every Set and Remove emits exactly one [Change] to subscribers before it
// returns; Clear emits one for the whole table. Notifications are delivered
// synchronously, in subscription order.
//
// # Layout cache
//
// A document holds at most one layout artifact. A mutation that affects
// layout frees the current artifact first and then, if a layout engine is
// configured through the "layout" render argument, computes a new one. A
// failed layout leaves the document with no artifact; the mutation still
// emits its Change and returns the LAYOUT_ERROR. Encoded outputs are
// memoized per format inside the artifact and discarded with it.
//
// # Concurrency
//
// A Document is not safe for concurrent use. All calls on a document,
// including those made by subscribers, must come from one owner goroutine;
// see package loop.
package document
