package engine

// Symbol is one declared attribute in a symbol table.
// Fields are only reachable through accessors so callers cannot bypass the
// owning table.
type Symbol struct {
	name  string
	value string
	pos   int
}

// Name returns the attribute name.
func (s *Symbol) Name() string { return s.name }

// Value returns the attribute value; "" means declared but unset.
func (s *Symbol) Value() string { return s.value }

// SymbolTable is an insertion-ordered attribute store.
// Entries are created by Set and never removed.
type SymbolTable struct {
	syms  []*Symbol
	index map[string]*Symbol
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]*Symbol)}
}

// Find returns the symbol called name, or nil.
func (t *SymbolTable) Find(name string) *Symbol {
	return t.index[name]
}

// First returns the earliest declared symbol, or nil for an empty table.
func (t *SymbolTable) First() *Symbol {
	if len(t.syms) == 0 {
		return nil
	}
	return t.syms[0]
}

// Next returns the symbol declared after prev, or nil at the end.
// A nil prev starts from the beginning.
func (t *SymbolTable) Next(prev *Symbol) *Symbol {
	if prev == nil {
		return t.First()
	}
	if prev.pos >= len(t.syms) || t.syms[prev.pos] != prev {
		return nil
	}
	if i := prev.pos + 1; i < len(t.syms) {
		return t.syms[i]
	}
	return nil
}

// Set creates or updates the symbol called name.
func (t *SymbolTable) Set(name, value string) *Symbol {
	if s, ok := t.index[name]; ok {
		s.value = value
		return s
	}
	s := &Symbol{name: name, value: value, pos: len(t.syms)}
	t.syms = append(t.syms, s)
	t.index[name] = s
	return s
}

// Declare adds name with an empty value unless it already exists.
func (t *SymbolTable) Declare(name string) *Symbol {
	if s, ok := t.index[name]; ok {
		return s
	}
	return t.Set(name, "")
}

// Len returns the number of declared symbols, including empty ones.
func (t *SymbolTable) Len() int {
	return len(t.syms)
}
