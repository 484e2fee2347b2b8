package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultport/internal/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMetrics_PrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestObserve(t *testing.T) {
	m := NewMetrics()
	m.Observe(models.Summary{
		Relocate: models.RelocateStats{FilesScanned: 4, FilesModified: 2, ResourcesMoved: 3, Missing: 1},
		Tidy:     models.TidyStats{Renamed: 1},
		FrontMatter: models.FrontMatterStats{
			FilesScanned:  4,
			FilesModified: 1,
			Lookups:       models.LookupStats{Attempted: 2, Cached: 5},
		},
	})

	body := scrape(t, m)
	assert.Contains(t, body, `vaultport_notes_scanned_total{pass="relocate"} 4`)
	assert.Contains(t, body, `vaultport_notes_modified_total{pass="frontmatter"} 1`)
	assert.Contains(t, body, "vaultport_resources_moved_total 3")
	assert.Contains(t, body, "vaultport_resources_missing_total 1")
	assert.Contains(t, body, `vaultport_location_lookups_total{result="cached"} 5`)
	assert.Contains(t, body, "vaultport_names_trimmed_total 1")
	assert.Contains(t, body, "vaultport_passes_total 1")
}

func TestObserve_Accumulates(t *testing.T) {
	m := NewMetrics()
	m.ObserveRelocate(models.RelocateStats{ResourcesMoved: 2})
	m.ObserveRelocate(models.RelocateStats{ResourcesMoved: 5})
	assert.Contains(t, scrape(t, m), "vaultport_resources_moved_total 7")
}
