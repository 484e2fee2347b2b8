package geocode

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserAgent     = "vaultport-test"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testUserAgent, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Reverse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "40.7128", r.URL.Query().Get("lat"))
		assert.Equal(t, "-74.006", r.URL.Query().Get("lon"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		resp := response{
			DisplayName: "New York, United States",
			Address: map[string]string{
				"city":    "New York",
				"state":   "New York",
				"country": "United States",
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	place, err := testClient(srv.URL).Reverse(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)
	assert.Equal(t, "New York, United States", place.DisplayName)
	assert.Equal(t, "New York, New York, United States", PlaceName(place.Address))
}

func TestClient_Reverse_EmailParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "me@example.com", r.URL.Query().Get("email"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"address":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testUserAgent, "me@example.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Reverse(context.Background(), 1, 2)
	require.NoError(t, err)
}

func TestClient_Reverse_UnableToGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	place, err := testClient(srv.URL).Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, PlaceName(place.Address))
}

func TestClient_Reverse_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("blocked"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Reverse(context.Background(), 1, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "status 403")
}

func TestClient_Reverse_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Reverse(ctx, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_Reverse_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Reverse(context.Background(), 1, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestPlaceName(t *testing.T) {
	tests := []struct {
		name string
		addr map[string]string
		want string
	}{
		{"city state country", map[string]string{"city": "Paris", "state": "Île-de-France", "country": "France"}, "Paris, Île-de-France, France"},
		{"town beats village", map[string]string{"village": "V", "town": "T", "country": "C"}, "T, C"},
		{"hamlet and region", map[string]string{"hamlet": "H", "region": "R"}, "H, R"},
		{"municipality only", map[string]string{"municipality": "M"}, "M"},
		{"state preferred over region", map[string]string{"state": "S", "region": "R"}, "S"},
		{"country only", map[string]string{"country": "Norway"}, "Norway"},
		{"road only is nothing", map[string]string{"road": "Main St"}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceName(tt.addr))
		})
	}
}
