package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/live"
)

func TestOpenSessionRejectsOutputOverInput(t *testing.T) {
	tc := newTestCLI(t, "")
	path := tc.writeDOT(t, "graph.dot", testDOT)

	_, err := tc.openSession(context.Background(), tc.eng, path, &watchOpts{output: path})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeInvalidPath)
	}
}

func TestOpenSessionUsesConfig(t *testing.T) {
	tc := newTestCLI(t, "[render]\nformat = \"png\"\n")
	if err := tc.run("formats"); err != nil {
		t.Fatal(err)
	}
	path := tc.writeDOT(t, "graph.dot", testDOT)

	s, err := tc.openSession(context.Background(), tc.eng, path, &watchOpts{output: filepath.Join(tc.dir, "out.png")})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Format; got != "png" {
		t.Errorf("format = %q, want png", got)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = s.Run(ctx)
}

func TestOpenSessionBadFormat(t *testing.T) {
	tc := newTestCLI(t, "")
	path := tc.writeDOT(t, "graph.dot", testDOT)

	_, err := tc.openSession(context.Background(), tc.eng, path, &watchOpts{format: "Not A Format"})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}

func TestPrintEvent(t *testing.T) {
	snap := live.Snapshot{Path: "graph.dot", Format: "svg", Output: []byte("12345"), State: document.StateValid}

	tests := []struct {
		name   string
		ev     live.Event
		output string
		want   string
	}{
		{"rendered", live.Event{Revision: 1}, "", "rev 1: rendered svg (5 bytes)"},
		{"to file", live.Event{Revision: 2}, "out.svg", "rev 2: rendered out.svg"},
		{"reloaded", live.Event{Revision: 3, Reopened: true}, "", "rev 3: reloaded graph.dot"},
		{"failed", live.Event{Revision: 4, Err: errors.New(errors.ErrCodeParse, "bad token")}, "", "rev 4: bad token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t, "")
			tc.printEvent(snap, tt.ev, tt.output)
			if !strings.Contains(tc.out.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", tc.out.String(), tt.want)
			}
		})
	}
}
