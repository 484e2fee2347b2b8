// Package relocate moves attachments out of the vault-wide resource store
// into a resource folder next to each note that uses them, and rewrites the
// note's links to match.
package relocate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/vaultport/internal/models"
	"github.com/starford/vaultport/internal/parser"
	"github.com/starford/vaultport/internal/report"
	"github.com/starford/vaultport/internal/storage"
)

// DefaultStoreDir is the conventional name of the shared resource store
// and of every per-note resource folder.
const DefaultStoreDir = "_resources"

// Journal records completed moves. Implementations must tolerate being
// called once per moved resource.
type Journal interface {
	RecordMove(ctx context.Context, note, resource, from, to string) error
}

// Relocator performs the resource relocation step.
type Relocator struct {
	store    storage.Provider
	storeDir string
	scanner  *parser.Scanner
	reporter report.Reporter
	journal  Journal
	logger   *slog.Logger
}

// Option configures a Relocator.
type Option func(*Relocator)

// WithStoreDir overrides the resource store directory name.
func WithStoreDir(name string) Option {
	return func(r *Relocator) { r.storeDir = name }
}

// WithReporter sets the status sink.
func WithReporter(rep report.Reporter) Option {
	return func(r *Relocator) { r.reporter = rep }
}

// WithJournal records every move.
func WithJournal(j Journal) Option {
	return func(r *Relocator) { r.journal = j }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relocator) { r.logger = l }
}

// New creates a Relocator over the given vault.
func New(store storage.Provider, opts ...Option) *Relocator {
	r := &Relocator{
		store:    store,
		storeDir: DefaultStoreDir,
		reporter: report.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scanner = parser.NewScanner(r.storeDir)
	return r
}

// Run processes every note in the vault. Per-note failures are reported
// and counted; only a failure to list the vault or a cancelled context
// stops the run.
func (r *Relocator) Run(ctx context.Context) (models.RelocateStats, error) {
	var stats models.RelocateStats

	report.Statusf(r.reporter, "Starting resource migration from: %s", filepath.Join(r.store.Root(), r.storeDir))

	metas, err := r.store.List("")
	if err != nil {
		return stats, fmt.Errorf("relocate: list notes: %w", err)
	}

	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if r.InStore(m.Path) {
			continue
		}
		res, err := r.ProcessNote(ctx, m.Path)
		stats.Add(res)
		if err != nil {
			stats.NoteErrors++
			report.Errorf(r.reporter, "Error processing %s: %v", m.Path, err)
			r.logger.Warn("relocate: note failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
	}
	return stats, nil
}

// InStore reports whether a note lives inside the shared store itself;
// such files are attachments, not notes.
func (r *Relocator) InStore(path string) bool {
	return strings.HasPrefix(filepath.ToSlash(path), r.storeDir+"/")
}

// ProcessNote relocates the resources referenced by one note (path
// relative to the vault root) and rewrites its links. The note is written
// only when at least one link can point at a file that is really there.
func (r *Relocator) ProcessNote(ctx context.Context, path string) (models.NoteResult, error) {
	res := models.NoteResult{Path: path}

	data, err := r.store.Read(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)
	report.Statusf(r.reporter, "Processing Markdown file: %s", path)

	refs := r.scanner.Scan(text)
	res.Refs = len(refs)
	if len(refs) == 0 {
		report.Statusf(r.reporter, "No resources found in %s", path)
		return res, nil
	}

	localDir := filepath.Join(filepath.Dir(path), r.storeDir)
	targets := make(map[string]string)
	seen := make(map[string]struct{}, len(refs))
	var toMove []string

	for _, ref := range refs {
		if _, ok := seen[ref.Name]; ok {
			continue
		}
		seen[ref.Name] = struct{}{}

		src := filepath.Join(r.storeDir, filepath.FromSlash(ref.Name))
		dst := filepath.Join(localDir, filepath.FromSlash(ref.Name))
		if !strings.HasPrefix(src, r.storeDir+string(filepath.Separator)) {
			res.Missing = append(res.Missing, ref.Name)
			report.Errorf(r.reporter, "Resource outside %s: %s", r.storeDir, ref.Name)
			continue
		}

		if src != dst {
			found, err := r.store.Exists(src)
			if err != nil {
				res.Missing = append(res.Missing, ref.Name)
				report.Errorf(r.reporter, "Resource not usable: %s (%v)", src, err)
				continue
			}
			if found {
				toMove = append(toMove, ref.Name)
				report.Statusf(r.reporter, "Found resource: %s", ref.Name)
				continue
			}
		}

		// Not in the store: a sibling note may already have brought it here.
		if found, err := r.store.Exists(dst); err == nil && found {
			res.InPlace = append(res.InPlace, ref.Name)
			targets[ref.Name] = r.scanner.LocalTarget(ref.Name)
			continue
		}
		res.Missing = append(res.Missing, ref.Name)
		report.Errorf(r.reporter, "Resource not found: %s", filepath.Join(r.store.Root(), src))
		r.logger.Debug("relocate: missing resource", slog.String("note", path), slog.String("resource", ref.Name))
	}

	if len(toMove) > 0 {
		if err := r.ensureDir(localDir); err != nil {
			for _, name := range toMove {
				res.Failed = append(res.Failed, name)
			}
			report.Errorf(r.reporter, "Error creating %s (for %s): %v", localDir, path, err)
			toMove = nil
		}
	}

	for _, name := range toMove {
		src := filepath.Join(r.storeDir, filepath.FromSlash(name))
		dst := filepath.Join(localDir, filepath.FromSlash(name))
		report.Statusf(r.reporter, "Moving: %s", name)
		if err := r.store.Move(src, dst); err != nil {
			res.Failed = append(res.Failed, name)
			report.Errorf(r.reporter, "Error moving %s (referenced in %s): %v", name, path, err)
			r.logger.Warn("relocate: move failed",
				slog.String("note", path),
				slog.String("resource", name),
				slog.String("error", err.Error()))
			continue
		}
		res.Moved = append(res.Moved, name)
		targets[name] = r.scanner.LocalTarget(name)
		report.Statusf(r.reporter, "Moved %s to %s", name, localDir)
		if r.journal != nil {
			if err := r.journal.RecordMove(ctx, path, name, src, dst); err != nil {
				r.logger.Warn("relocate: journal failed", slog.String("resource", name), slog.String("error", err.Error()))
			}
		}
	}

	if len(targets) == 0 {
		return res, nil
	}

	updated := parser.Rewrite(text, refs, targets)
	if updated == text {
		return res, nil
	}
	if err := r.store.Write(path, []byte(updated)); err != nil {
		return res, fmt.Errorf("save %s: %w", path, err)
	}
	res.Rewritten = true
	report.Statusf(r.reporter, "Saved updated %s", path)
	r.logger.Debug("relocate: note rewritten",
		slog.String("path", path),
		slog.Int("moved", len(res.Moved)),
		slog.Int("in_place", len(res.InPlace)))
	return res, nil
}

func (r *Relocator) ensureDir(dir string) error {
	found, err := r.store.Exists(dir)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	if err := r.store.MkdirAll(dir); err != nil {
		return err
	}
	report.Statusf(r.reporter, "Created %s directory: %s", r.storeDir, dir)
	return nil
}
