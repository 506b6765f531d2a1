// Package render resolves road-following polylines between consecutive stops
// so routes can be drawn on a map. It talks to the OpenRouteService directions
// API and degrades to straight segments when no key is configured or the API
// fails.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"wco-route-planner/internal/database"
	"wco-route-planner/internal/models"
)

// DefaultBaseURL is the public OpenRouteService endpoint
const DefaultBaseURL = "https://api.openrouteservice.org"

// PathResolver resolves a drivable path between two coordinates
type PathResolver interface {
	GetPath(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error)
}

// ErrPathResolutionFailed is returned when the directions API fails
type ErrPathResolutionFailed struct {
	Origin models.Coordinates
	Dest   models.Coordinates
	Reason string
}

func (e *ErrPathResolutionFailed) Error() string {
	return fmt.Sprintf("path resolution failed: %s", e.Reason)
}

type orsResolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      database.RoutePathCacheRepository
}

type orsDirectionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type orsDirectionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// NewORSResolver creates a path resolver backed by OpenRouteService with a
// sqlite cache. The free tier allows 40 requests per minute, so requests are
// rate limited below that.
func NewORSResolver(apiKey, baseURL string, cache database.RoutePathCacheRepository) PathResolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &orsResolver{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(1700*time.Millisecond), 1),
		cache:   cache,
	}
}

func (c *orsResolver) GetPath(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error) {
	if origin == dest {
		return &models.RoutePathCacheEntry{
			Origin:      origin,
			Destination: dest,
			Path:        [][]float64{{origin.Lat, origin.Lng}},
		}, nil
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, origin, dest)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	if c.apiKey == "" {
		return straightPath(origin, dest), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}

	log.Printf("[ORS] Cache miss: origin=(%.6f,%.6f) dest=(%.6f,%.6f)", origin.Lat, origin.Lng, dest.Lat, dest.Lng)

	entry, err := c.fetchPath(ctx, origin, dest)
	if err != nil {
		log.Printf("[ERROR] ORS directions failed, using straight path: %v", err)
		return straightPath(origin, dest), nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, entry); err != nil {
			log.Printf("[ERROR] Failed to cache path: %v", err)
		}
	}
	return entry, nil
}

func (c *orsResolver) fetchPath(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error) {
	// ORS wants lng,lat order
	payload := orsDirectionsRequest{
		Coordinates: [][]float64{
			{origin.Lng, origin.Lat},
			{dest.Lng, dest.Lat},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}

	queryURL := fmt.Sprintf("%s/v2/directions/driving-car/geojson", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ErrPathResolutionFailed{
			Origin: origin,
			Dest:   dest,
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var orsResp orsDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&orsResp); err != nil {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}
	if len(orsResp.Features) == 0 {
		return nil, &ErrPathResolutionFailed{Origin: origin, Dest: dest, Reason: "no route features returned"}
	}

	feature := orsResp.Features[0]
	path := make([][]float64, 0, len(feature.Geometry.Coordinates))
	for _, p := range feature.Geometry.Coordinates {
		if len(p) < 2 {
			continue
		}
		// store lat,lng order
		path = append(path, []float64{p[1], p[0]})
	}

	return &models.RoutePathCacheEntry{
		Origin:         origin,
		Destination:    dest,
		Path:           path,
		DistanceMeters: feature.Properties.Summary.Distance,
	}, nil
}

// straightPath is the degraded two-point segment used when the directions API
// is unavailable.
func straightPath(origin, dest models.Coordinates) *models.RoutePathCacheEntry {
	return &models.RoutePathCacheEntry{
		Origin:      origin,
		Destination: dest,
		Path: [][]float64{
			{origin.Lat, origin.Lng},
			{dest.Lat, dest.Lng},
		},
	}
}

// AttachRoadPaths resolves a polyline for every consecutive stop pair in the
// analysis and fills in VehicleRouteInfo.RoadPaths. Failures on individual
// segments degrade to straight lines and never abort the run.
func AttachRoadPaths(ctx context.Context, resolver PathResolver, result *models.RouteAnalysisResult) {
	if resolver == nil {
		return
	}
	for ti := range result.Trips {
		trip := &result.Trips[ti]
		for vi := range trip.VehicleRoutes {
			info := &trip.VehicleRoutes[vi]
			for i := 0; i+1 < len(info.Stops); i++ {
				from := info.Stops[i]
				to := info.Stops[i+1]
				entry, err := resolver.GetPath(ctx, from.Coordinates, to.Coordinates)
				if err != nil {
					log.Printf("[ERROR] Path resolution failed for %s -> %s: %v", from.Name, to.Name, err)
					entry = straightPath(from.Coordinates, to.Coordinates)
				}
				info.RoadPaths = append(info.RoadPaths, models.RoutePathInfo{
					FromCoords: from.Coordinates,
					ToCoords:   to.Coordinates,
					Path:       entry.Path,
					TripNumber: trip.TripNumber,
				})
			}
		}
	}
}
