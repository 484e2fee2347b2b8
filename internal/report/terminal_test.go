package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminal_StatusOverwritesAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.width = func() int { return 10 }

	term.Status("short")
	term.Status("a much longer status line")

	out := buf.String()
	if !strings.HasPrefix(out, "\rshort     ") {
		t.Errorf("first status not padded: %q", out)
	}
	if !strings.HasSuffix(out, "\ra much ...") {
		t.Errorf("second status not truncated: %q", out)
	}
}

func TestTerminal_StatusUsesDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.width = func() int { return 10 }

	term.Status("日本")
	term.Status("日本語のノート.md")

	out := buf.String()
	if !strings.HasPrefix(out, "\r日本      \r") {
		t.Errorf("wide status padded by runes: %q", out)
	}
	if !strings.HasSuffix(out, "\r日本語... ") {
		t.Errorf("wide status truncated by runes: %q", out)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 5, "ab..."},
		{"abcdef", 2, "ab"},
		{"ノートノート", 7, "ノー..."},
		{"ノート", 6, "ノート"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestTerminal_ErrorClearsStatus(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.width = func() int { return 5 }

	term.Status("x")
	term.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "\r     \r") {
		t.Errorf("status line not cleared: %q", out)
	}
	if !strings.Contains(out, "boom") || !strings.HasSuffix(out, "\n") {
		t.Errorf("error missing: %q", out)
	}
}

func TestTerminal_Step(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf).Step(2, "Trimming names")
	if !strings.Contains(buf.String(), "Step 2: Trimming names") {
		t.Errorf("banner missing: %q", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	Statusf(&r, "processing %s", "a.md")
	Errorf(&r, "missing %d", 1)
	r.Step(1, "Move")
	r.Info("done")

	if got := r.Statuses(); len(got) != 1 || got[0] != "processing a.md" {
		t.Errorf("statuses = %v", got)
	}
	if got := r.Errors(); len(got) != 1 || got[0] != "missing 1" {
		t.Errorf("errors = %v", got)
	}
	if got := r.Steps(); len(got) != 1 || got[0] != "1: Move" {
		t.Errorf("steps = %v", got)
	}
	if got := r.Infos(); len(got) != 1 {
		t.Errorf("infos = %v", got)
	}
}
