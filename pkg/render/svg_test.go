package render

import (
	"strings"
	"testing"
)

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
		same     bool
	}{
		{
			name:     "graphviz output",
			in:       `<?xml version="1.0"?><svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`,
			contains: `viewBox="0 0 62.00 116.00" width="62" height="116"`,
		},
		{
			name:     "negative origin",
			in:       `<svg viewBox="-4.00 -4.00 10.00 20.00"><g/></svg>`,
			contains: `viewBox="0 0 10.00 20.00"`,
		},
		{
			name: "no viewBox",
			in:   `<svg width="10" height="10"></svg>`,
			same: true,
		},
		{
			name: "zero size",
			in:   `<svg viewBox="0 0 0 0"></svg>`,
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(NormalizeViewBox([]byte(tt.in)))
			if tt.same {
				if got != tt.in {
					t.Errorf("NormalizeViewBox() changed input:\n%s", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("NormalizeViewBox() = %s, want substring %s", got, tt.contains)
			}
			if strings.Contains(got, "pt\"") {
				t.Errorf("NormalizeViewBox() kept pt dimensions: %s", got)
			}
			if !strings.HasSuffix(got, "<g/></svg>") {
				t.Errorf("NormalizeViewBox() altered body: %s", got)
			}
		})
	}
}
