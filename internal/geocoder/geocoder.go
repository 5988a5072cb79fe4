// Package geocoder resolves postal codes to coordinates through a
// Nominatim-style HTTP endpoint. Lookups are cached in-process because
// postal codes are both hot (every radius search) and immutable.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Geocoder = (*NominatimClient)(nil)

type Geocoder interface {
	Geocode(ctx context.Context, postalCode string) (types.Point, error)
}

type NominatimClient struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	cache   *cache.Cache
}

func NewNominatimClient(baseURL string, cacheTTL time.Duration, logger *slog.Logger) *NominatimClient {
	return &NominatimClient{
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		cache:   cache.New(cacheTTL, 2*cacheTTL),
	}
}

// nominatimResult is the subset of the search response we consume.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *NominatimClient) Geocode(ctx context.Context, postalCode string) (types.Point, error) {
	if cached, ok := g.cache.Get(postalCode); ok {
		return cached.(types.Point), nil
	}

	endpoint := fmt.Sprintf("%s/search?postalcode=%s&format=json&limit=1",
		g.baseURL, url.QueryEscape(postalCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Point{}, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.ErrorContext(ctx, "Geocode request failed", slog.Any("error", err))
		return types.Point{}, fmt.Errorf("geocoder unreachable: %w", types.ErrUpstreamIO)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Point{}, fmt.Errorf("geocoder returned status %d: %w", resp.StatusCode, types.ErrUpstreamIO)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return types.Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, &types.ValidationError{
			Messages: []string{fmt.Sprintf("Could not geocode zipcode %s", postalCode)},
		}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoder returned bad latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoder returned bad longitude %q: %w", results[0].Lon, err)
	}

	point := types.Point{Latitude: lat, Longitude: lng}
	g.cache.Set(postalCode, point, cache.DefaultExpiration)
	return point, nil
}
