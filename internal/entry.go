// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultport/internal/api"
	"github.com/starford/vaultport/internal/frontmatter"
	"github.com/starford/vaultport/internal/geocode"
	"github.com/starford/vaultport/internal/journal"
	"github.com/starford/vaultport/internal/models"
	"github.com/starford/vaultport/internal/observability"
	"github.com/starford/vaultport/internal/relocate"
	"github.com/starford/vaultport/internal/report"
	"github.com/starford/vaultport/internal/sse"
	"github.com/starford/vaultport/internal/storage"
	"github.com/starford/vaultport/internal/tidy"
	"github.com/starford/vaultport/internal/watch"
)

// ErrJournalDisabled is returned by History when no journal path is configured.
var ErrJournalDisabled = errors.New("journal is not configured")

// Run performs a complete migration of the configured vault and returns
// the end-of-run summary. An interrupt cancels the run between notes.
func Run(ctx context.Context, opts ...Option) (models.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return models.Summary{}, err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFS(app.config.Vault.Path)
	if err != nil {
		return models.Summary{}, fmt.Errorf("init storage: %w", err)
	}

	j, err := app.openJournal()
	if err != nil {
		return models.Summary{}, err
	}
	if j != nil {
		defer j.Close()
	}

	relocator, rewriter, err := app.components(store, j)
	if err != nil {
		return models.Summary{}, err
	}

	summary, err := app.migrate(ctx, store, relocator, rewriter)
	if err != nil {
		return summary, err
	}
	app.reportSummary(summary)
	return summary, nil
}

// Watch performs a full migration and then keeps the vault migrated as
// notes change, until ctx is cancelled or an interrupt arrives. When an
// HTTP port is configured it serves health checks, metrics and the journal.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	j, err := app.openJournal()
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	relocator, rewriter, err := app.components(store, j)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()
	var ready atomic.Bool

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.App.HTTP.Enabled() {
		deps := api.Deps{Metrics: metrics.Handler(), Events: broker, Ready: &ready}
		if j != nil {
			deps.Journal = j
		}
		httpServer := &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           api.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		summary, err := app.migrate(gCtx, store, relocator, rewriter)
		if err != nil {
			if gCtx.Err() != nil {
				return nil
			}
			return err
		}
		app.reportSummary(summary)
		metrics.Observe(summary)
		broker.Publish(sse.Event{Type: sse.TypePass, Data: summary})
		ready.Store(true)

		opts := []watch.Option{
			watch.WithLogger(logger),
			watch.WithMetrics(metrics),
			watch.WithCallback(func(path string, res models.NoteResult, rewritten bool) {
				broker.PublishNote(sse.NoteProcessed{
					Path:        filepath.ToSlash(path),
					Moved:       res.Moved,
					Missing:     res.Missing,
					Failed:      res.Failed,
					LinksFixed:  res.Rewritten,
					FrontMatter: rewritten,
				})
			}),
		}
		if rewriter != nil {
			opts = append(opts, watch.WithRewriter(rewriter))
		}
		app.reporter.Info("Watching for changes. Press Ctrl+C to stop.")
		return watch.New(store, relocator, opts...).Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped successfully")
	return nil
}

// HistoryReport is the journal view printed by the history command.
type HistoryReport struct {
	Entries  []journal.Entry // newest first
	Moves    int             // all recorded moves
	Rewrites int             // all recorded rewrites
}

// History returns the most recent journal entries, newest first, along
// with the journal's overall totals.
func History(ctx context.Context, limit int, opts ...Option) (HistoryReport, error) {
	var hr HistoryReport
	app, err := newApplication(opts)
	if err != nil {
		return hr, err
	}
	j, err := app.openJournal()
	if err != nil {
		return hr, err
	}
	if j == nil {
		return hr, ErrJournalDisabled
	}
	defer j.Close()

	if hr.Entries, err = j.Recent(ctx, limit); err != nil {
		return hr, err
	}
	if hr.Moves, hr.Rewrites, err = j.Counts(ctx); err != nil {
		return hr, err
	}
	return hr, nil
}

// PlannedOperations lists, in order, what Run will do with cfg.
func PlannedOperations(cfg *Config) []string {
	store := cfg.Vault.ResourceDir
	ops := []string{
		fmt.Sprintf("Move resources from %s directory to %s folders next to markdown files", store, store),
		"Remove trailing underscores and spaces from files and folders",
		fmt.Sprintf("Remove empty %s directories", store),
	}
	fm := cfg.FrontMatter
	switch {
	case fm.StripLocation:
		ops = append(ops, "Remove location data (latitude, longitude, altitude) from YAML front matter")
	case fm.ConvertLocation:
		ops = append(ops, "Add human-readable location names from coordinates (keeping original coordinates)")
	}
	if fm.AddSource {
		ops = append(ops, fmt.Sprintf("Add \"source: %s\" to YAML front matter", sourceValue(fm)))
	}
	return ops
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	if app.reporter == nil {
		app.reporter = report.NewTerminal(os.Stdout)
	}

	app.logger.Debug("Configuration loaded",
		slog.String("vault_path", app.config.Vault.Path),
		slog.String("resource_dir", app.config.Vault.ResourceDir),
		slog.String("journal_path", app.config.Journal.Path),
		slog.String("log_level", app.config.App.LogLevel.String()))
	return app, nil
}

// openJournal returns nil when the journal is disabled.
func (a *application) openJournal() (*journal.DB, error) {
	if !a.config.Journal.Enabled() {
		return nil, nil
	}
	j, err := journal.Open(a.config.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return j, nil
}

// components builds the relocator and, when any front-matter edit is
// requested, the rewriter.
func (a *application) components(store storage.Provider, j *journal.DB) (*relocate.Relocator, *frontmatter.Rewriter, error) {
	cfg := a.config

	relocOpts := []relocate.Option{
		relocate.WithStoreDir(cfg.Vault.ResourceDir),
		relocate.WithReporter(a.reporter),
		relocate.WithLogger(a.logger),
	}
	if j != nil {
		relocOpts = append(relocOpts, relocate.WithJournal(j))
	}
	relocator := relocate.New(store, relocOpts...)

	if !cfg.FrontMatter.Enabled() {
		return relocator, nil, nil
	}

	rwOpts := []frontmatter.Option{
		frontmatter.WithReporter(a.reporter),
		frontmatter.WithLogger(a.logger),
	}
	if j != nil {
		rwOpts = append(rwOpts, frontmatter.WithJournal(j))
	}
	if cfg.FrontMatter.ConvertLocation {
		rwOpts = append(rwOpts, frontmatter.WithResolver(a.resolver()))
	}
	rewriter, err := frontmatter.NewRewriter(store, cfg.FrontMatter.Options(), rwOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init front matter rewriter: %w", err)
	}
	return relocator, rewriter, nil
}

func (a *application) resolver() *geocode.Resolver {
	gc := a.config.Geocoder
	g := a.geocoder
	if g == nil {
		g = geocode.NewClient(gc.BaseURL, gc.UserAgent, gc.Email, a.logger)
	}
	opts := []geocode.ResolverOption{
		geocode.WithMaxAttempts(gc.MaxAttempts),
		geocode.WithTimeout(gc.Timeout),
		geocode.WithPauses(gc.RatePause, gc.RetryPause),
		geocode.WithResolverLogger(a.logger),
	}
	if a.clock != nil {
		opts = append(opts, geocode.WithClock(a.clock))
	}
	return geocode.NewResolver(g, opts...)
}

// migrate runs the numbered steps in order. rewriter may be nil.
func (a *application) migrate(ctx context.Context, store storage.Provider, relocator *relocate.Relocator, rewriter *frontmatter.Rewriter) (models.Summary, error) {
	var summary models.Summary
	cfg := a.config
	rep := a.reporter
	root := store.Root()
	storeDir := cfg.Vault.ResourceDir

	report.Statusf(rep, "Starting vault processing in: %s", root)

	rep.Step(1, fmt.Sprintf("Moving resources to %s folders", storeDir))
	stats, err := relocator.Run(ctx)
	summary.Relocate = stats
	if err != nil {
		return summary, fmt.Errorf("move resources: %w", err)
	}
	rep.Info("Done!")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	rep.Step(2, "Removing trailing underscores and spaces from files and folders")
	renamed, err := tidy.TrimNames(root, rep)
	summary.Tidy.Renamed = renamed
	if err != nil {
		return summary, fmt.Errorf("trim names: %w", err)
	}
	rep.Info("Done!")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	rep.Step(3, fmt.Sprintf("Removing empty %s directories", storeDir))
	removed, err := tidy.PruneEmptyResourceDirs(root, storeDir, rep)
	summary.Tidy.Pruned = len(removed)
	if err != nil {
		return summary, fmt.Errorf("prune empty directories: %w", err)
	}
	rep.Info(fmt.Sprintf("Removed %d empty %s directories", len(removed), storeDir))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if rewriter == nil {
		rep.Info("Keeping location data as-is (no --strip-location or --convert-location flag)")
		return summary, nil
	}

	fm := cfg.FrontMatter
	switch {
	case fm.ConvertLocation:
		rep.Step(4, "Adding human-readable location names (keeping coordinates)")
		rep.Info("Note: This may take a while due to API rate limits (1 request/second)")
	case fm.StripLocation:
		rep.Step(4, "Removing location data from YAML front matter")
	default:
		rep.Step(4, fmt.Sprintf("Adding source: %s to YAML front matter", sourceValue(fm)))
	}
	fmStats, err := rewriter.Run(ctx)
	summary.FrontMatter = fmStats
	if err != nil {
		return summary, fmt.Errorf("rewrite front matter: %w", err)
	}
	rep.Info(fmt.Sprintf("Processed %d markdown files", fmStats.FilesModified))
	return summary, nil
}

func (a *application) reportSummary(s models.Summary) {
	rep := a.reporter
	rep.Info("")
	rep.Info("Summary")
	rep.Info(fmt.Sprintf("  Files scanned:        %d", s.Relocate.FilesScanned))
	rep.Info(fmt.Sprintf("  Files modified:       %d", s.Relocate.FilesModified))
	rep.Info(fmt.Sprintf("  Resources moved:      %d", s.Relocate.ResourcesMoved))
	rep.Info(fmt.Sprintf("  Resources missing:    %d", s.Relocate.Missing))
	rep.Info(fmt.Sprintf("  Move failures:        %d", s.Relocate.MoveFailures))
	rep.Info(fmt.Sprintf("  Names trimmed:        %d", s.Tidy.Renamed))
	rep.Info(fmt.Sprintf("  Directories pruned:   %d", s.Tidy.Pruned))
	if a.config.FrontMatter.Enabled() {
		rep.Info(fmt.Sprintf("  Front matter updated: %d", s.FrontMatter.FilesModified))
	}
	if a.config.FrontMatter.ConvertLocation {
		l := s.FrontMatter.Lookups
		rep.Info(fmt.Sprintf("  Location lookups:     %d attempted, %d cached, %d failed", l.Attempted, l.Cached, l.Failed))
	}

	a.logger.Info("migration finished",
		slog.Int("files_scanned", s.Relocate.FilesScanned),
		slog.Int("resources_moved", s.Relocate.ResourcesMoved),
		slog.Int("resources_missing", s.Relocate.Missing),
		slog.Int("move_failures", s.Relocate.MoveFailures),
		slog.Int("names_trimmed", s.Tidy.Renamed),
		slog.Int("dirs_pruned", s.Tidy.Pruned),
		slog.Int("front_matter_updated", s.FrontMatter.FilesModified))
}

func sourceValue(fm FrontMatterConfig) string {
	if fm.SourceValue == "" {
		return frontmatter.DefaultSourceValue
	}
	return fm.SourceValue
}
