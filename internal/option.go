package internal

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/starford/vaultport/internal/geocode"
	"github.com/starford/vaultport/internal/report"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	reporter report.Reporter
	logger   *slog.Logger
	geocoder geocode.Geocoder
	clock    clockwork.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithReporter sets where progress and per-file errors are shown.
// Defaults to a terminal reporter on stdout.
func WithReporter(rep report.Reporter) Option {
	return func(a *application) {
		a.reporter = rep
	}
}

// WithLogger sets the structured logger. Defaults to JSON on stderr at
// the configured level.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithGeocoder replaces the HTTP reverse geocoding client.
func WithGeocoder(g geocode.Geocoder) Option {
	return func(a *application) {
		a.geocoder = g
	}
}

// WithClock sets the clock used for geocoder pauses.
func WithClock(c clockwork.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}
