package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultUserAgent identifies requests when none is configured.
const DefaultUserAgent = "vaultport/1.0"

// Client implements Geocoder against a Nominatim-compatible reverse endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	email      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a reverse geocoding client. The service's usage policy
// requires an identifying user agent.
func NewClient(baseURL, userAgent, email string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		email:     email,
		// Per-attempt deadlines come from the caller's context.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Reverse looks up the address at lat/lon.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"addressdetails": {"1"},
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	fullURL := c.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Place{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("geocode: request", slog.Float64("lat", lat), slog.Float64("lon", lon))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Place{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Place{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Place{}, fmt.Errorf("geocoding API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		if isTimeout(err) {
			return Place{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Place{}, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("geocode: response",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
		slog.String("display_name", r.DisplayName),
		slog.Duration("elapsed", time.Since(start)))

	// Nominatim reports "nothing here" as a 200 with an error field.
	if r.Error != "" {
		return Place{}, nil
	}
	return Place{DisplayName: r.DisplayName, Address: r.Address}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Nominatim API response.
type response struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}
