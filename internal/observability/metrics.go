// Package observability exposes migration counters as Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/vaultport/internal/models"
)

const namespace = "vaultport"

// Metrics holds the Prometheus counters for relocation and front-matter passes.
type Metrics struct {
	registry *prometheus.Registry

	NotesScanned     *prometheus.CounterVec // labels: pass={relocate,frontmatter}
	NotesModified    *prometheus.CounterVec // labels: pass={relocate,frontmatter}
	NoteErrors       *prometheus.CounterVec // labels: pass={relocate,frontmatter}
	ResourcesMoved   prometheus.Counter
	ResourcesMissing prometheus.Counter
	MoveFailures     prometheus.Counter

	// Location lookups.
	Lookups *prometheus.CounterVec // labels: result={attempted,cached,failed}

	NamesTrimmed prometheus.Counter
	DirsPruned   prometheus.Counter
	Passes       prometheus.Counter
}

// NewMetrics creates all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NotesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_scanned_total",
			Help:      "Notes examined, by pass.",
		}, []string{"pass"}),
		NotesModified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_modified_total",
			Help:      "Notes whose content was rewritten, by pass.",
		}, []string{"pass"}),
		NoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_errors_total",
			Help:      "Notes that could not be processed, by pass.",
		}, []string{"pass"}),
		ResourcesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_moved_total",
			Help:      "Resource files moved next to their notes.",
		}),
		ResourcesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_missing_total",
			Help:      "Referenced resources not found in the store.",
		}),
		MoveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "move_failures_total",
			Help:      "Resource moves that failed.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_lookups_total",
			Help:      "Reverse geocoding lookups by result.",
		}, []string{"result"}),
		NamesTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "names_trimmed_total",
			Help:      "Files and folders renamed to drop trailing underscores or spaces.",
		}),
		DirsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_dirs_pruned_total",
			Help:      "Empty resource folders removed.",
		}),
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed migration passes.",
		}),
	}

	m.registry.MustRegister(
		m.NotesScanned,
		m.NotesModified,
		m.NoteErrors,
		m.ResourcesMoved,
		m.ResourcesMissing,
		m.MoveFailures,
		m.Lookups,
		m.NamesTrimmed,
		m.DirsPruned,
		m.Passes,
	)

	return m
}

// Registry returns the private registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRelocate adds relocation counters.
func (m *Metrics) ObserveRelocate(s models.RelocateStats) {
	m.NotesScanned.WithLabelValues("relocate").Add(float64(s.FilesScanned))
	m.NotesModified.WithLabelValues("relocate").Add(float64(s.FilesModified))
	m.NoteErrors.WithLabelValues("relocate").Add(float64(s.NoteErrors))
	m.ResourcesMoved.Add(float64(s.ResourcesMoved))
	m.ResourcesMissing.Add(float64(s.Missing))
	m.MoveFailures.Add(float64(s.MoveFailures))
}

// ObserveFrontMatter adds front-matter counters.
func (m *Metrics) ObserveFrontMatter(s models.FrontMatterStats) {
	m.NotesScanned.WithLabelValues("frontmatter").Add(float64(s.FilesScanned))
	m.NotesModified.WithLabelValues("frontmatter").Add(float64(s.FilesModified))
	m.NoteErrors.WithLabelValues("frontmatter").Add(float64(s.NoteErrors))
	m.Lookups.WithLabelValues("attempted").Add(float64(s.Lookups.Attempted))
	m.Lookups.WithLabelValues("cached").Add(float64(s.Lookups.Cached))
	m.Lookups.WithLabelValues("failed").Add(float64(s.Lookups.Failed))
}

// Observe records a complete pass summary.
func (m *Metrics) Observe(s models.Summary) {
	m.ObserveRelocate(s.Relocate)
	m.ObserveFrontMatter(s.FrontMatter)
	m.NamesTrimmed.Add(float64(s.Tidy.Renamed))
	m.DirsPruned.Add(float64(s.Tidy.Pruned))
	m.Passes.Inc()
}
