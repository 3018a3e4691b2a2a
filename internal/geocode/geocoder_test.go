package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var centroid = domain.Coordinates{Lat: 6.9271, Lon: 79.8612}

func newTestGeocoder(endpoint string) *Geocoder {
	cfg := config.GeocodingConfig{
		Endpoint:        endpoint,
		UserAgent:       "fraud-risk-test",
		Timeout:         time.Second,
		BreakerInterval: time.Minute,
		BreakerTimeout:  time.Minute,
	}
	return NewGeocoder(cfg, centroid, zap.NewNop())
}

func TestResolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fraud-risk-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "12 Galle Rd, Colombo", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"lat":"6.9155","lon":"79.8487"}]`))
	}))
	defer server.Close()

	g := newTestGeocoder(server.URL)
	loc := g.Resolve(context.Background(), "12 Galle Rd, Colombo")
	assert.InDelta(t, 6.9155, loc.Lat, 1e-9)
	assert.InDelta(t, 79.8487, loc.Lon, 1e-9)
}

func TestResolve_EmptyAddressUsesCentroid(t *testing.T) {
	g := newTestGeocoder("http://unused.invalid")
	assert.Equal(t, centroid, g.Resolve(context.Background(), ""))
}

func TestResolve_NoResultsUsesCentroid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	g := newTestGeocoder(server.URL)
	assert.Equal(t, centroid, g.Resolve(context.Background(), "nowhere at all"))
}

func TestResolve_ServerErrorUsesCentroid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := newTestGeocoder(server.URL)
	assert.Equal(t, centroid, g.Resolve(context.Background(), "12 Galle Rd"))
}

func TestResolve_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestGeocoder(server.URL)
	for i := 0; i < 10; i++ {
		assert.Equal(t, centroid, g.Resolve(context.Background(), "failing address"))
	}

	// The breaker trips after five consecutive failures and stops
	// hitting the upstream.
	assert.Equal(t, 5, calls)
}
