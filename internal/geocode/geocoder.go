package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Geocoder resolves merchant street addresses to coordinates through the
// Nominatim HTTP API. The external service is slow and rate limited, so
// calls run behind a circuit breaker; any failure, breaker-open state
// included, degrades to the home-region centroid. Resolve never returns an
// error: a submission must not fail because a convenience lookup did.
type Geocoder struct {
	endpoint  string
	userAgent string
	client    *http.Client
	cb        *gobreaker.CircuitBreaker
	fallback  domain.Coordinates
	logger    *zap.Logger
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewGeocoder(cfg config.GeocodingConfig, fallback domain.Coordinates, logger *zap.Logger) *Geocoder {
	settings := gobreaker.Settings{
		Name:     "nominatim",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Geocoder circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Geocoder{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		cb:        gobreaker.NewCircuitBreaker(settings),
		fallback:  fallback,
		logger:    logger,
	}
}

// Resolve looks up coordinates for an address. An empty address or any
// lookup failure returns the configured centroid.
func (g *Geocoder) Resolve(ctx context.Context, address string) domain.Coordinates {
	if address == "" {
		return g.fallback
	}

	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.lookup(ctx, address)
	})
	if err != nil {
		g.logger.Debug("Geocoding failed, using centroid",
			zap.String("address", address),
			zap.Error(err),
		)
		return g.fallback
	}

	return result.(domain.Coordinates)
}

func (g *Geocoder) lookup(ctx context.Context, address string) (domain.Coordinates, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.endpoint, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Coordinates{}, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("no results for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("bad latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("bad longitude %q: %w", results[0].Lon, err)
	}

	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}
