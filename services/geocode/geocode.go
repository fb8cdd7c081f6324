package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fixify/config"
	"fixify/models"
	"fixify/utils"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when Google has no coordinates for the postal code.
var ErrNotFound = errors.New("geocode: no results for postal code")

// GeocodeService resolves postal codes to geographic coordinates.
type GeocodeService interface {
	Resolve(ctx context.Context, postalCode, country string) (*models.GeoPoint, error)
}

// GoogleGeocodeService is the production implementation backed by the
// Google Geocoding API with a Redis cache in front of it.
type GoogleGeocodeService struct {
	CacheClient *redis.Client
	HTTPClient  *http.Client
}

// geocodeResponse mirrors the subset of the Google Geocoding API payload we read.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the centroid of the given postal code. Results are cached
// because postal code centroids effectively never move.
func (s *GoogleGeocodeService) Resolve(ctx context.Context, postalCode, country string) (*models.GeoPoint, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return nil, fmt.Errorf("geocode: postal code is required")
	}
	if country == "" {
		country = config.AppConfig.GeocodeCountry
	}

	cacheKey := utils.GeoCachePrefix + strings.ToUpper(country) + ":" + strings.ToUpper(postalCode)
	if cached, err := s.CacheClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
		var point models.GeoPoint
		if err := json.Unmarshal([]byte(cached), &point); err == nil {
			return &point, nil
		}
		// If unmarshal fails, we fall through to a fresh lookup.
	}

	apiKey := config.AppConfig.GoogleAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("geocode: missing Google API key")
	}

	endpoint := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/geocode/json?components=postal_code:%s|country:%s&key=%s",
		url.QueryEscape(postalCode), url.QueryEscape(country), apiKey,
	)

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("geocode: decoding response failed: %w", err)
	}

	switch decoded.Status {
	case "OK":
		// fall through
	case "ZERO_RESULTS":
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("geocode: API returned status %s", decoded.Status)
	}
	if len(decoded.Results) == 0 {
		return nil, ErrNotFound
	}

	loc := decoded.Results[0].Geometry.Location
	point := &models.GeoPoint{
		Type:        "Point",
		Coordinates: []float64{loc.Lng, loc.Lat},
	}

	if bytes, err := json.Marshal(point); err == nil {
		s.CacheClient.Set(ctx, cacheKey, bytes, utils.GeoCacheTTL)
	}

	return point, nil
}
