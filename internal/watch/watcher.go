// Package watch keeps a vault migrated while it is being edited.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultport/internal/frontmatter"
	"github.com/starford/vaultport/internal/models"
	"github.com/starford/vaultport/internal/observability"
	"github.com/starford/vaultport/internal/relocate"
	"github.com/starford/vaultport/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of events on
// a note to settle before processing it.
const DefaultDebounce = 200 * time.Millisecond

// EventCallback is called after a note has been processed.
type EventCallback func(path string, result models.NoteResult, rewritten bool)

// Watcher re-runs the relocator and the front-matter rewriter on notes
// that change on disk.
type Watcher struct {
	store     storage.Provider
	relocator *relocate.Relocator
	rewriter  *frontmatter.Rewriter
	metrics   *observability.Metrics
	logger    *slog.Logger
	debounce  time.Duration
	callback  EventCallback

	checksums map[string]string
	lookups   models.LookupStats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRewriter enables the front-matter pass for changed notes.
func WithRewriter(rw *frontmatter.Rewriter) Option {
	return func(w *Watcher) { w.rewriter = rw }
}

// WithMetrics records per-note activity.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithCallback registers fn to be called after each processed note.
func WithCallback(fn EventCallback) Option {
	return func(w *Watcher) { w.callback = fn }
}

// New creates a Watcher over store.
func New(store storage.Provider, relocator *relocate.Relocator, opts ...Option) *Watcher {
	w := &Watcher{
		store:     store,
		relocator: relocator,
		logger:    slog.Default(),
		debounce:  DefaultDebounce,
		checksums: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rewriter != nil {
		w.lookups = w.rewriter.Lookups()
	}
	return w
}

// Run watches the vault until ctx is cancelled. Notes present at start are
// remembered by checksum and only reprocessed once their content changes.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	w.prime()

	w.logger.Info("watcher: started", slog.String("root", root), slog.Int("notes", len(w.checksums)))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				if ctx.Err() != nil {
					break
				}
				w.process(ctx, p)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					for _, rel := range notesUnder(root, ev.Name) {
						schedule(rel)
					}
					continue
				}
			}

			if !storage.IsNote(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(w.checksums, rel)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// prime records the checksum of every note currently in the vault.
func (w *Watcher) prime() {
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: initial list failed", slog.String("error", err.Error()))
		return
	}
	for _, m := range metas {
		data, err := w.store.Read(m.Path)
		if err != nil {
			w.logger.Warn("watcher: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		w.checksums[m.Path] = storage.Checksum(data)
	}
}

// process runs both passes over one note if its content changed since it
// was last seen.
func (w *Watcher) process(ctx context.Context, rel string) {
	if w.relocator.InStore(rel) {
		return
	}
	data, err := w.store.Read(rel)
	if err != nil {
		// Deleted or renamed away before the debounce fired.
		delete(w.checksums, rel)
		return
	}
	if w.checksums[rel] == storage.Checksum(data) {
		return
	}

	var rs models.RelocateStats
	res, err := w.relocator.ProcessNote(ctx, rel)
	rs.Add(res)
	if err != nil {
		rs.NoteErrors++
		w.logger.Warn("watcher: relocate failed", slog.String("path", rel), slog.String("error", err.Error()))
	}

	var fms models.FrontMatterStats
	rewritten := false
	if w.rewriter != nil {
		fms.FilesScanned = 1
		rewritten, err = w.rewriter.ProcessNote(ctx, rel)
		if err != nil {
			fms.NoteErrors++
			w.logger.Warn("watcher: front matter failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else if rewritten {
			fms.FilesModified = 1
		}
		now := w.rewriter.Lookups()
		fms.Lookups = models.LookupStats{
			Attempted: now.Attempted - w.lookups.Attempted,
			Cached:    now.Cached - w.lookups.Cached,
			Failed:    now.Failed - w.lookups.Failed,
		}
		w.lookups = now
	}

	if data, err := w.store.Read(rel); err == nil {
		w.checksums[rel] = storage.Checksum(data)
	}

	if w.metrics != nil {
		w.metrics.ObserveRelocate(rs)
		w.metrics.ObserveFrontMatter(fms)
	}

	w.logger.Debug("watcher: processed",
		slog.String("path", rel),
		slog.Int("moved", len(res.Moved)),
		slog.Int("missing", len(res.Missing)),
		slog.Bool("front_matter", rewritten))

	if w.callback != nil {
		w.callback(rel, res, rewritten)
	}
}

// notesUnder lists notes (relative to root) below dir.
func notesUnder(root, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsNote(path) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
