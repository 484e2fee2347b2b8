package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultport/internal/apperr"
	"github.com/starford/vaultport/internal/geocode"
	"github.com/starford/vaultport/internal/report"
	"github.com/starford/vaultport/internal/testutil"
)

type fixedGeocoder struct {
	place geocode.Place
	calls int
}

func (g *fixedGeocoder) Reverse(_ context.Context, _, _ float64) (geocode.Place, error) {
	g.calls++
	return g.place, nil
}

func testConfig(root string) *Config {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = root
	cfg.Geocoder.RatePause = 0
	cfg.Geocoder.RetryPause = 0
	return cfg
}

func testOptions(cfg *Config, rec *report.Recorder, extra ...Option) []Option {
	opts := []Option{
		WithConfig(cfg),
		WithReporter(rec),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	}
	return append(opts, extra...)
}

func TestRun_FullMigration(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"_resources/a.png": "png",
		"Notebook_/note.md": "---\ntitle: N\nlatitude: 1.5\nlongitude: 2.5\n---\n" +
			"![](../_resources/a.png)\n",
	})

	cfg := testConfig(root)
	cfg.FrontMatter.StripLocation = true
	cfg.FrontMatter.AddSource = true
	rec := &report.Recorder{}

	summary, err := Run(context.Background(), testOptions(cfg, rec)...)
	require.NoError(t, err)

	assert.Equal(t,
		"---\ntitle: N\nsource: joplin\n---\n![](./_resources/a.png)\n",
		testutil.ReadFile(t, root, "Notebook/note.md"))
	assert.Equal(t, "png", testutil.ReadFile(t, root, "Notebook/_resources/a.png"))
	assert.False(t, testutil.Exists(t, root, "_resources"), "empty store should be pruned")
	assert.False(t, testutil.Exists(t, root, "Notebook_"))

	assert.Equal(t, 1, summary.Relocate.ResourcesMoved)
	assert.Equal(t, 1, summary.Tidy.Renamed)
	assert.Equal(t, 1, summary.Tidy.Pruned)
	assert.Equal(t, 1, summary.FrontMatter.FilesModified)

	assert.Equal(t, []string{
		"1: Moving resources to _resources folders",
		"2: Removing trailing underscores and spaces from files and folders",
		"3: Removing empty _resources directories",
		"4: Removing location data from YAML front matter",
	}, rec.Steps())
	assert.Empty(t, rec.Errors())
	assert.Contains(t, rec.Infos(), "Summary")
}

func TestRun_ConflictingModesTouchesNothing(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"_resources/a.png": "png",
		"n/note.md":        "![](../_resources/a.png)",
	})

	cfg := testConfig(root)
	cfg.FrontMatter.StripLocation = true
	cfg.FrontMatter.ConvertLocation = true
	rec := &report.Recorder{}

	_, err := Run(context.Background(), testOptions(cfg, rec)...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflictingModes))
	assert.True(t, testutil.Exists(t, root, "_resources/a.png"))
	assert.Equal(t, "![](../_resources/a.png)", testutil.ReadFile(t, root, "n/note.md"))
	assert.Empty(t, rec.Steps())
}

func TestRun_WithoutFrontMatterStep(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"note.md": "---\nlatitude: 1\n---\nbody",
	})
	rec := &report.Recorder{}

	summary, err := Run(context.Background(), testOptions(testConfig(root), rec)...)
	require.NoError(t, err)

	assert.Len(t, rec.Steps(), 3)
	assert.Contains(t, rec.Infos(), "Keeping location data as-is (no --strip-location or --convert-location flag)")
	assert.Equal(t, "---\nlatitude: 1\n---\nbody", testutil.ReadFile(t, root, "note.md"))
	assert.Equal(t, 0, summary.FrontMatter.FilesScanned)
}

func TestRun_ConvertLocation(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"a.md": "---\nlatitude: 48.85\nlongitude: 2.35\n---\nA",
		"b.md": "---\nlatitude: 48.85\nlongitude: 2.35\n---\nB",
	})
	cfg := testConfig(root)
	cfg.FrontMatter.ConvertLocation = true
	g := &fixedGeocoder{place: geocode.Place{Address: map[string]string{"city": "Paris", "country": "France"}}}
	rec := &report.Recorder{}

	summary, err := Run(context.Background(), testOptions(cfg, rec, WithGeocoder(g))...)
	require.NoError(t, err)

	assert.Equal(t, "---\nlatitude: 48.85\nlongitude: 2.35\nlocation: Paris, France\n---\nA",
		testutil.ReadFile(t, root, "a.md"))
	assert.Equal(t, 1, g.calls)
	assert.Equal(t, 1, summary.FrontMatter.Lookups.Attempted)
	assert.Equal(t, 1, summary.FrontMatter.Lookups.Cached)
	assert.Equal(t, "4: Adding human-readable location names (keeping coordinates)", rec.Steps()[3])
}

func TestRun_JournalAndHistory(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"_resources/a.png": "png",
		"n/note.md":        "![](../_resources/a.png)",
		"n/meta.md":        "---\ntitle: M\n---\nbody",
	})
	cfg := testConfig(root)
	cfg.FrontMatter.AddSource = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	rec := &report.Recorder{}

	_, err := Run(context.Background(), testOptions(cfg, rec)...)
	require.NoError(t, err)

	hr, err := History(context.Background(), 10, testOptions(cfg, rec)...)
	require.NoError(t, err)
	assert.Equal(t, 1, hr.Moves)
	assert.Equal(t, 1, hr.Rewrites)

	var kinds []string
	for _, e := range hr.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, "move")
	assert.Contains(t, kinds, "rewrite")
}

func TestHistory_Disabled(t *testing.T) {
	root, _ := testutil.TestVault(t)
	_, err := History(context.Background(), 10, testOptions(testConfig(root), &report.Recorder{})...)
	assert.ErrorIs(t, err, ErrJournalDisabled)
}

func TestRun_MissingVault(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	_, err := Run(context.Background(), testOptions(cfg, &report.Recorder{})...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init storage")
}

func TestRun_RequiresConfig(t *testing.T) {
	_, err := Run(context.Background())
	assert.Error(t, err)
}

func TestPlannedOperations(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Len(t, PlannedOperations(cfg), 3)

	cfg.FrontMatter.ConvertLocation = true
	cfg.FrontMatter.AddSource = true
	cfg.FrontMatter.SourceValue = "evernote"
	ops := PlannedOperations(cfg)
	require.Len(t, ops, 5)
	assert.True(t, strings.HasPrefix(ops[3], "Add human-readable location names"))
	assert.Equal(t, `Add "source: evernote" to YAML front matter`, ops[4])
}

func TestWatch_InitialPassThenStops(t *testing.T) {
	root, _ := testutil.TestVault(t)
	testutil.WriteFiles(t, root, map[string]string{
		"_resources/a.png": "png",
		"n/note.md":        "![](../_resources/a.png)",
	})
	rec := &report.Recorder{}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := Watch(ctx, testOptions(testConfig(root), rec)...)
	require.NoError(t, err)

	assert.Equal(t, "![](./_resources/a.png)", testutil.ReadFile(t, root, "n/note.md"))
	assert.Contains(t, rec.Infos(), "Watching for changes. Press Ctrl+C to stop.")
}
