package errors

import (
	"strings"
	"testing"
)

func TestValidateAttributeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "rankdir", false},
		{"mixed case", "labelFloat", false},
		{"underscore prefix", "_background", false},
		{"quoted style", "my attr", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 257), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttributeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAttributeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateAttributeName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"png:cairo", false},
		{"xdot1.4", true},
		{"", true},
		{"SVG", true},
		{"svg png", true},
		{"../svg", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidFormat) {
				t.Errorf("ValidateFormat(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateEngineName(t *testing.T) {
	for _, name := range []string{"dot", "neato", "sfdp"} {
		if err := ValidateEngineName(name); err != nil {
			t.Errorf("ValidateEngineName(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", "dot;rm", "Dot"} {
		if err := ValidateEngineName(name); err == nil {
			t.Errorf("ValidateEngineName(%q) = nil, want error", name)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "out/graph.svg", false},
		{"valid nested", "exports/2024/graph.png", false},
		{"valid filename only", "graph.svg", false},
		{"valid with dots", "v1.2.3/graph.svg", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeIO,
		ErrCodeParse,
		ErrCodeLayout,
		ErrCodeRender,
		ErrCodeAttributeNotFound,
		ErrCodeFileLocked,
		ErrCodeDisposed,
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidPath,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
