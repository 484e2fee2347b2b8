package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const defaultWidth = 80

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// Terminal renders messages for an interactive terminal: status lines
// overwrite each other in place, errors and banners are kept.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	width func() int
	dirty bool // a status line is currently displayed
}

// NewTerminal writes to out. When out is a terminal its width is used to
// truncate status lines.
func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{out: out, width: func() int { return defaultWidth }}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.width = func() int {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				return w
			}
			return defaultWidth
		}
	}
	return t
}

// Status replaces the current status line with msg, cut to the terminal
// width.
func (t *Terminal) Status(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.width()
	msg = truncate(msg, w)
	fmt.Fprintf(t.out, "\r%s", padRight(msg, w))
	t.dirty = true
}

// Error clears the status line and prints msg in red.
func (t *Terminal) Error(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	fmt.Fprintln(t.out, errorStyle.Render(msg))
}

// Step prints a numbered banner for the start of a migration step.
func (t *Terminal) Step(n int, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	fmt.Fprintf(t.out, "\n%s\n%s\n", stepStyle.Render(fmt.Sprintf("Step %d: %s", n, msg)), strings.Repeat("=", 50))
}

// Info clears the status line and prints msg as is.
func (t *Terminal) Info(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	fmt.Fprintln(t.out, msg)
}

func (t *Terminal) clearStatus() {
	if !t.dirty {
		return
	}
	fmt.Fprintf(t.out, "\r%s\r", strings.Repeat(" ", t.width()))
	t.dirty = false
}

// truncate cuts s to at most width terminal cells, ending in "..." when
// anything was dropped.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	limit := width - len(tail)
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > limit {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + tail
}

func padRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
