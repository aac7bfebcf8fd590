package engine

import "testing"

func TestSymbolTableSetAndFind(t *testing.T) {
	tab := NewSymbolTable()

	if tab.Find("rankdir") != nil {
		t.Fatal("Find() on empty table should return nil")
	}

	s := tab.Set("rankdir", "LR")
	if s.Name() != "rankdir" || s.Value() != "LR" {
		t.Errorf("Set() = %s=%s, want rankdir=LR", s.Name(), s.Value())
	}

	// Update keeps the same symbol
	s2 := tab.Set("rankdir", "TB")
	if s2 != s {
		t.Error("Set() on existing name should update the same symbol")
	}
	if got := tab.Find("rankdir").Value(); got != "TB" {
		t.Errorf("Find().Value() = %q, want %q", got, "TB")
	}
	if tab.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tab.Len())
	}
}

func TestSymbolTableEmptyValueStaysDeclared(t *testing.T) {
	tab := NewSymbolTable()
	tab.Set("color", "red")
	tab.Set("color", "")

	s := tab.Find("color")
	if s == nil {
		t.Fatal("symbol set to empty string should remain declared")
	}
	if s.Value() != "" {
		t.Errorf("Value() = %q, want empty", s.Value())
	}
}

func TestSymbolTableIterationOrder(t *testing.T) {
	tab := NewSymbolTable()
	for _, name := range []string{"b", "a", "c"} {
		tab.Set(name, "x")
	}
	tab.Set("a", "y") // update must not move it

	var got []string
	for s := tab.First(); s != nil; s = tab.Next(s) {
		got = append(got, s.Name())
	}

	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("iteration = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("iteration[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSymbolTableNextForeignSymbol(t *testing.T) {
	a := NewSymbolTable()
	b := NewSymbolTable()
	a.Set("x", "1")
	a.Set("y", "2")
	foreign := b.Set("z", "3")

	if a.Next(foreign) != nil {
		t.Error("Next() with a symbol from another table should return nil")
	}
	if a.Next(nil) != a.First() {
		t.Error("Next(nil) should start from the first symbol")
	}
}

func TestSymbolTableDeclare(t *testing.T) {
	tab := NewSymbolTable()
	tab.Set("shape", "box")

	if got := tab.Declare("shape").Value(); got != "box" {
		t.Errorf("Declare() overwrote existing value: %q", got)
	}
	s := tab.Declare("color")
	if s.Value() != "" || tab.Find("color") != s {
		t.Errorf("Declare(color) = %q, want empty declared symbol", s.Value())
	}
	if tab.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tab.Len())
	}
}
