// Package geocode resolves coordinates to human-readable place names.
package geocode

import (
	"context"
	"errors"
	"strings"
)

// ErrTimeout marks a lookup attempt that ran out of time. Only timeouts
// are retried.
var ErrTimeout = errors.New("geocode: request timed out")

// ErrNoResult means the service answered but no usable place name could be
// derived from the answer.
var ErrNoResult = errors.New("geocode: no place name for coordinates")

// Place is the part of a reverse lookup answer the migration uses.
type Place struct {
	DisplayName string
	Address     map[string]string
}

// Geocoder performs a single reverse lookup. Implementations must return
// an error wrapping ErrTimeout when the attempt timed out.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

var (
	localityKeys = []string{"city", "town", "village", "hamlet", "municipality"}
	regionKeys   = []string{"state", "region"}
)

// PlaceName builds "locality, region, country" from an address, using the
// first available key of each group. It returns "" when nothing is available.
func PlaceName(addr map[string]string) string {
	var parts []string
	if v := firstOf(addr, localityKeys); v != "" {
		parts = append(parts, v)
	}
	if v := firstOf(addr, regionKeys); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(addr["country"]); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

func firstOf(addr map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(addr[k]); v != "" {
			return v
		}
	}
	return ""
}
