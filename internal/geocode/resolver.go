package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/vaultport/internal/models"
)

// Defaults for the public Nominatim service: at most one request per
// second, ten seconds per attempt.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second
	DefaultRatePause   = time.Second
	DefaultRetryPause  = 2 * time.Second
)

// Key is a coordinate pair rounded to 5 decimals (about 1.1 m).
type Key struct {
	Lat, Lon float64
}

// NewKey rounds lat/lon into a cache key.
func NewKey(lat, lon float64) Key {
	return Key{Lat: round5(lat), Lon: round5(lon)}
}

func round5(v float64) float64 { return math.Round(v*1e5) / 1e5 }

type cacheEntry struct {
	name  string
	found bool
}

// Resolver turns coordinates into place names, caching answers for the
// lifetime of one run. It is not safe for concurrent use.
type Resolver struct {
	geocoder    Geocoder
	clock       clockwork.Clock
	logger      *slog.Logger
	maxAttempts int
	timeout     time.Duration
	ratePause   time.Duration
	retryPause  time.Duration

	cache map[Key]cacheEntry
	stats models.LookupStats
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock swaps the time source used for pauses.
func WithClock(c clockwork.Clock) ResolverOption {
	return func(r *Resolver) { r.clock = c }
}

// WithMaxAttempts bounds the attempts made for one coordinate when the
// service keeps timing out.
func WithMaxAttempts(n int) ResolverOption {
	return func(r *Resolver) { r.maxAttempts = n }
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithPauses sets the pause before every request and the base pause
// between timed-out attempts (multiplied by the attempt number).
func WithPauses(rate, retry time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ratePause = rate
		r.retryPause = retry
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver wraps g with caching, rate limiting and timeout retries.
func NewResolver(g Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		geocoder:    g,
		clock:       clockwork.NewRealClock(),
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultTimeout,
		ratePause:   DefaultRatePause,
		retryPause:  DefaultRetryPause,
		cache:       make(map[Key]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// Stats returns the lookup counters so far.
func (r *Resolver) Stats() models.LookupStats { return r.stats }

// Resolve returns the place name for lat/lon.
//
// Outcomes: a name and nil; ErrNoResult when the service had nothing
// usable (cached, later lookups of the same key return ErrNoResult without
// a request); ErrTimeout after every attempt timed out (cached the same
// way); any other service error, returned immediately and not cached.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	key := NewKey(lat, lon)
	if e, ok := r.cache[key]; ok {
		r.stats.Cached++
		r.logger.Debug("geocode: cache hit", slog.Float64("lat", key.Lat), slog.Float64("lon", key.Lon), slog.Bool("found", e.found))
		if !e.found {
			return "", ErrNoResult
		}
		return e.name, nil
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.sleep(ctx, r.ratePause); err != nil {
			return "", err
		}

		r.stats.Attempted++
		place, err := r.lookup(ctx, lat, lon)
		if err == nil {
			name := PlaceName(place.Address)
			if name == "" {
				r.stats.Failed++
				r.cache[key] = cacheEntry{}
				return "", ErrNoResult
			}
			r.cache[key] = cacheEntry{name: name, found: true}
			return name, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, ErrTimeout) {
			r.stats.Failed++
			return "", err
		}

		r.logger.Warn("geocode: attempt timed out",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.maxAttempts),
			slog.Float64("lat", lat),
			slog.Float64("lon", lon))
		if attempt < r.maxAttempts {
			if err := r.sleep(ctx, r.retryPause*time.Duration(attempt)); err != nil {
				return "", err
			}
		}
	}

	r.stats.Failed++
	r.cache[key] = cacheEntry{}
	return "", fmt.Errorf("%w after %d attempts", ErrTimeout, r.maxAttempts)
}

func (r *Resolver) lookup(ctx context.Context, lat, lon float64) (Place, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.geocoder.Reverse(ctx, lat, lon)
}

func (r *Resolver) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
