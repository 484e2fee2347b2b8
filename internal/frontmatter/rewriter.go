// Package frontmatter edits the geolocation and provenance fields of the
// metadata block at the top of each note. Fields are found with
// line-anchored patterns; the block is never parsed as a YAML document.
package frontmatter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/vaultport/internal/apperr"
	"github.com/starford/vaultport/internal/geocode"
	"github.com/starford/vaultport/internal/models"
	"github.com/starford/vaultport/internal/parser"
	"github.com/starford/vaultport/internal/report"
	"github.com/starford/vaultport/internal/storage"
)

// DefaultSourceValue is written by the provenance option.
const DefaultSourceValue = "joplin"

const number = `[-+]?[0-9]*\.?[0-9]+`

var (
	latitudeRe  = regexp.MustCompile(`(?m)^latitude:[ \t]*(` + number + `)[ \t]*\r?$`)
	longitudeRe = regexp.MustCompile(`(?m)^longitude:[ \t]*(` + number + `)[ \t]*\r?$`)
	coordLineRe = regexp.MustCompile(`(?m)^(?:latitude|longitude|altitude):[ \t]*` + number + `[ \t]*\r?(?:\n|$)`)
	locationRe  = regexp.MustCompile(`(?m)^location:`)
	sourceRe    = regexp.MustCompile(`(?m)^source:`)
	blankRunRe  = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// Options selects the edits to apply.
type Options struct {
	StripCoordinates   bool
	ConvertCoordinates bool
	AddSource          bool
	SourceValue        string
}

// Validate rejects conflicting modes.
func (o Options) Validate() error {
	if o.StripCoordinates && o.ConvertCoordinates {
		return apperr.ErrConflictingModes
	}
	return nil
}

// Enabled reports whether any edit is requested.
func (o Options) Enabled() bool {
	return o.StripCoordinates || o.ConvertCoordinates || o.AddSource
}

// PlaceResolver resolves coordinates to a place name.
type PlaceResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (string, error)
	Stats() models.LookupStats
}

// Journal records rewritten notes.
type Journal interface {
	RecordRewrite(ctx context.Context, note, action string) error
}

// Rewriter applies Options to every note of a vault.
type Rewriter struct {
	store    storage.Provider
	opts     Options
	resolver PlaceResolver
	reporter report.Reporter
	journal  Journal
	logger   *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithResolver sets the place-name resolver; required for convert mode.
func WithResolver(r PlaceResolver) Option {
	return func(w *Rewriter) { w.resolver = r }
}

// WithReporter sets the status sink.
func WithReporter(rep report.Reporter) Option {
	return func(w *Rewriter) { w.reporter = rep }
}

// WithJournal records every rewritten note.
func WithJournal(j Journal) Option {
	return func(w *Rewriter) { w.journal = j }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Rewriter) { w.logger = l }
}

// NewRewriter validates opts and builds a Rewriter.
func NewRewriter(store storage.Provider, opts Options, options ...Option) (*Rewriter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.SourceValue == "" {
		opts.SourceValue = DefaultSourceValue
	}
	w := &Rewriter{
		store:    store,
		opts:     opts,
		reporter: report.Discard,
		logger:   slog.Default(),
	}
	for _, o := range options {
		o(w)
	}
	if opts.ConvertCoordinates && w.resolver == nil {
		return nil, errors.New("frontmatter: convert mode requires a place resolver")
	}
	return w, nil
}

// Run rewrites every note in the vault. Per-note failures are reported
// and counted without stopping the run.
func (w *Rewriter) Run(ctx context.Context) (stats models.FrontMatterStats, err error) {
	defer func() {
		if w.resolver != nil {
			stats.Lookups = w.resolver.Stats()
		}
	}()

	metas, err := w.store.List("")
	if err != nil {
		return stats, fmt.Errorf("frontmatter: list notes: %w", err)
	}

	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.FilesScanned++
		changed, perr := w.ProcessNote(ctx, m.Path)
		if perr != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.NoteErrors++
			report.Errorf(w.reporter, "Error processing file %s: %v", m.Path, perr)
			w.logger.Warn("frontmatter: note failed", slog.String("path", m.Path), slog.String("error", perr.Error()))
			continue
		}
		if changed {
			stats.FilesModified++
		}
	}
	return stats, nil
}

// Lookups returns the resolver's running totals, or zero without a resolver.
func (w *Rewriter) Lookups() models.LookupStats {
	if w.resolver == nil {
		return models.LookupStats{}
	}
	return w.resolver.Stats()
}

// ProcessNote rewrites one note (path relative to the vault root) and
// reports whether it was written.
func (w *Rewriter) ProcessNote(ctx context.Context, path string) (bool, error) {
	data, err := w.store.Read(path)
	if err != nil {
		return false, err
	}
	content := string(data)

	updated, actions, err := w.rewrite(ctx, path, content)
	if err != nil {
		return false, err
	}
	if updated == content {
		return false, nil
	}
	if err := w.store.Write(path, []byte(updated)); err != nil {
		return false, fmt.Errorf("save %s: %w", path, err)
	}

	action := strings.Join(actions, ",")
	report.Statusf(w.reporter, "Updated front matter (%s): %s", action, path)
	w.logger.Debug("frontmatter: note rewritten", slog.String("path", path), slog.String("actions", action))
	if w.journal != nil {
		if err := w.journal.RecordRewrite(ctx, path, action); err != nil {
			w.logger.Warn("frontmatter: journal failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return true, nil
}

// RewriteContent returns content with the configured edits applied. It
// returns content unchanged when there is no metadata block.
func (w *Rewriter) RewriteContent(ctx context.Context, content string) (string, error) {
	out, _, err := w.rewrite(ctx, "", content)
	return out, err
}

func (w *Rewriter) rewrite(ctx context.Context, path, content string) (string, []string, error) {
	fm, ok := parser.SplitFrontMatter(content)
	if !ok {
		return content, nil, nil
	}
	block := fm.Block
	var actions []string

	if w.opts.ConvertCoordinates {
		name, err := w.placeName(ctx, path, block)
		if err != nil {
			return content, nil, err
		}
		if name != "" {
			block = appendField(block, "location", name)
			actions = append(actions, "location")
		}
	}

	if w.opts.StripCoordinates {
		stripped := coordLineRe.ReplaceAllString(block, "")
		if stripped != block {
			actions = append(actions, "strip")
		}
		block = stripped
	}

	if w.opts.AddSource && !sourceRe.MatchString(block) {
		block = appendField(block, "source", w.opts.SourceValue)
		actions = append(actions, "source")
	}

	// Unedited blocks, an empty one included, are left exactly as written.
	if len(actions) == 0 {
		return content, nil, nil
	}

	block = blankRunRe.ReplaceAllString(block, "\n\n")
	block = strings.TrimSpace(block)

	return fm.Join(block), actions, nil
}

// placeName resolves the block's coordinates. It returns "" (and no
// error) when the block already has a location, lacks a coordinate, or the
// lookup fails; only a cancelled context is returned as an error.
func (w *Rewriter) placeName(ctx context.Context, path, block string) (string, error) {
	if locationRe.MatchString(block) {
		return "", nil
	}
	lat, ok1 := numericField(latitudeRe, block)
	lon, ok2 := numericField(longitudeRe, block)
	if !ok1 || !ok2 {
		return "", nil
	}

	report.Statusf(w.reporter, "Looking up location for %.5f, %.5f", lat, lon)
	name, err := w.resolver.Resolve(ctx, lat, lon)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, geocode.ErrNoResult) {
			report.Statusf(w.reporter, "No location found for %.5f, %.5f", lat, lon)
		} else {
			report.Errorf(w.reporter, "Could not resolve location for %.5f, %.5f in %s: %v", lat, lon, path, err)
		}
		w.logger.Debug("frontmatter: lookup failed",
			slog.String("path", path),
			slog.Float64("lat", lat),
			slog.Float64("lon", lon),
			slog.String("error", err.Error()))
		return "", nil
	}
	return name, nil
}

func numericField(re *regexp.Regexp, block string) (float64, bool) {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func appendField(block, key, value string) string {
	return strings.TrimRight(block, "\n") + "\n" + key + ": " + scalar(value) + "\n"
}

// scalar renders value as a single-line YAML scalar, quoting only when
// YAML would otherwise misread it.
func scalar(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	out, err := yaml.Marshal(value)
	if err != nil {
		return value
	}
	s := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(s, "\n") {
		return strconv.Quote(value)
	}
	return s
}
