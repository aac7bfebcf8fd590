package document

import (
	"iter"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
)

// Table is a live view of one component's attribute symbol table.
// It holds no state of its own; every call reads or writes the handle.
type Table struct {
	doc       *Document
	component engine.Component
}

// Entry is one attribute. Value is empty only in [Table.Declarations].
type Entry struct {
	Name  string
	Value string
}

// Component returns the component this table mirrors.
func (t *Table) Component() engine.Component { return t.component }

// Get returns the value of name. ok is false when the attribute was never
// declared or is empty.
func (t *Table) Get(name string) (value string, ok bool) {
	h := t.doc.live()
	if h == nil {
		return "", false
	}
	s := h.FindAttribute(t.component, name)
	if s == nil || s.Value() == "" {
		return "", false
	}
	return s.Value(), true
}

// At is the strict form of Get: an absent or empty attribute is an
// ATTRIBUTE_NOT_FOUND error.
func (t *Table) At(name string) (string, error) {
	if t.doc.live() == nil {
		return "", errDisposed()
	}
	v, ok := t.Get(name)
	if !ok {
		return "", errors.New(errors.ErrCodeAttributeNotFound, "%s attribute %q not set", t.component, name)
	}
	return v, nil
}

// Contains reports whether name has a non-empty value.
func (t *Table) Contains(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Declared reports whether name exists in the symbol table, empty or not.
func (t *Table) Declared(name string) bool {
	h := t.doc.live()
	return h != nil && h.FindAttribute(t.component, name) != nil
}

// Set creates or updates name and notifies the document. Writing the
// current value again still notifies. The returned error is the
// LAYOUT_ERROR of the resulting re-layout, if any; the value is stored
// regardless.
func (t *Table) Set(name, value string) error {
	if err := errors.ValidateAttributeName(name); err != nil {
		return err
	}
	h := t.doc.live()
	if h == nil {
		return errDisposed()
	}
	h.SetAttribute(t.component, name, value)
	return t.doc.noteChanged(true)
}

// Remove empties name and notifies the document. It reports false when name
// was never declared; nothing is declared in that case. The symbol itself is
// kept.
func (t *Table) Remove(name string) (bool, error) {
	h := t.doc.live()
	if h == nil {
		return false, errDisposed()
	}
	declared := h.FindAttribute(t.component, name) != nil
	if declared {
		h.SetAttribute(t.component, name, "")
	}
	return declared, t.doc.noteChanged(true)
}

// Clear empties every declared attribute and notifies once.
func (t *Table) Clear() error {
	h := t.doc.live()
	if h == nil {
		return errDisposed()
	}
	var names []string
	for s := h.FirstAttribute(t.component); s != nil; s = h.NextAttribute(t.component, s) {
		names = append(names, s.Name())
	}
	for _, name := range names {
		h.SetAttribute(t.component, name, "")
	}
	return t.doc.noteChanged(true)
}

// All iterates over non-empty attributes in declaration order.
func (t *Table) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		h := t.doc.live()
		if h == nil {
			return
		}
		for s := h.FirstAttribute(t.component); s != nil; s = h.NextAttribute(t.component, s) {
			if s.Value() == "" {
				continue
			}
			if !yield(s.Name(), s.Value()) {
				return
			}
		}
	}
}

// Keys returns the names of non-empty attributes.
func (t *Table) Keys() []string {
	var out []string
	for k := range t.All() {
		out = append(out, k)
	}
	return out
}

// Values returns the non-empty values, in the same order as Keys.
func (t *Table) Values() []string {
	var out []string
	for _, v := range t.All() {
		out = append(out, v)
	}
	return out
}

// Entries returns the non-empty attributes.
func (t *Table) Entries() []Entry {
	var out []Entry
	for k, v := range t.All() {
		out = append(out, Entry{Name: k, Value: v})
	}
	return out
}

// Declarations returns every declared attribute, including those whose
// value is empty, in declaration order.
func (t *Table) Declarations() []Entry {
	h := t.doc.live()
	if h == nil {
		return nil
	}
	var out []Entry
	for s := h.FirstAttribute(t.component); s != nil; s = h.NextAttribute(t.component, s) {
		out = append(out, Entry{Name: s.Name(), Value: s.Value()})
	}
	return out
}

// Len returns the number of non-empty attributes.
func (t *Table) Len() int {
	n := 0
	for range t.All() {
		n++
	}
	return n
}

// Map returns the non-empty attributes as a map.
func (t *Table) Map() map[string]string {
	out := make(map[string]string)
	for k, v := range t.All() {
		out[k] = v
	}
	return out
}
