// Package report defines the status sink the migration steps write to and
// its terminal, discarding, and recording implementations.
package report

import (
	"fmt"
	"sync"
)

// Reporter receives progress from the migration steps.
type Reporter interface {
	// Status shows a transient progress line; the next message may overwrite it.
	Status(msg string)
	// Error shows a message that stays in the log.
	Error(msg string)
	// Step announces a numbered section.
	Step(n int, msg string)
	// Info shows a persistent, non-error line.
	Info(msg string)
}

// Statusf formats and forwards a status line.
func Statusf(r Reporter, format string, args ...any) { r.Status(fmt.Sprintf(format, args...)) }

// Errorf formats and forwards an error line.
func Errorf(r Reporter, format string, args ...any) { r.Error(fmt.Sprintf(format, args...)) }

// Discard drops every message.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Status(string)    {}
func (discard) Error(string)     {}
func (discard) Step(int, string) {}
func (discard) Info(string)      {}

// Recorder keeps every message; used by tests.
type Recorder struct {
	mu       sync.Mutex
	statuses []string
	errors   []string
	steps    []string
	infos    []string
}

func (r *Recorder) Status(msg string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, msg)
	r.mu.Unlock()
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func (r *Recorder) Info(msg string) {
	r.mu.Lock()
	r.infos = append(r.infos, msg)
	r.mu.Unlock()
}

func (r *Recorder) Step(n int, msg string) {
	r.mu.Lock()
	r.steps = append(r.steps, fmt.Sprintf("%d: %s", n, msg))
	r.mu.Unlock()
}

// Errors returns a copy of the recorded error lines.
func (r *Recorder) Errors() []string { return r.snapshot(&r.errors) }

// Statuses returns a copy of the recorded status lines.
func (r *Recorder) Statuses() []string { return r.snapshot(&r.statuses) }

// Steps returns a copy of the recorded step banners as "n: msg".
func (r *Recorder) Steps() []string { return r.snapshot(&r.steps) }

// Infos returns a copy of the recorded info lines.
func (r *Recorder) Infos() []string { return r.snapshot(&r.infos) }

func (r *Recorder) snapshot(s *[]string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), (*s)...)
}
