package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })

	for _, s := range []string{String(), Template()} {
		if !strings.Contains(s, "v1.2.3") {
			t.Errorf("%q does not contain the version", s)
		}
	}
	if GraphvizVersion() == "" {
		t.Error("GraphvizVersion() should never be empty")
	}
}
