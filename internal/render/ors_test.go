package render

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wco-route-planner/internal/models"
	"wco-route-planner/internal/testutil"
)

func TestGetPathSamePoint(t *testing.T) {
	resolver := NewORSResolver("", "", nil)
	p := models.Coordinates{Lat: 14.6, Lng: 121.0}

	entry, err := resolver.GetPath(context.Background(), p, p)
	require.NoError(t, err)
	assert.Len(t, entry.Path, 1)
}

func TestGetPathWithoutKeyIsStraight(t *testing.T) {
	resolver := NewORSResolver("", "", nil)
	a := models.Coordinates{Lat: 14.6, Lng: 121.0}
	b := models.Coordinates{Lat: 14.7, Lng: 121.1}

	entry, err := resolver.GetPath(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, entry.Path, 2)
	assert.Equal(t, []float64{14.6, 121.0}, entry.Path[0])
	assert.Equal(t, []float64{14.7, 121.1}, entry.Path[1])
}

func TestGetPathFromDirectionsAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		var req orsDirectionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Coordinates, 2)
		// ORS wants lng,lat order
		assert.Equal(t, 121.0, req.Coordinates[0][0])
		assert.Equal(t, 14.6, req.Coordinates[0][1])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[121.0,14.6],[121.05,14.65],[121.1,14.7]]},"properties":{"summary":{"distance":15000}}}]}`))
	}))
	defer srv.Close()

	resolver := NewORSResolver("test-key", srv.URL, nil)
	a := models.Coordinates{Lat: 14.6, Lng: 121.0}
	b := models.Coordinates{Lat: 14.7, Lng: 121.1}

	entry, err := resolver.GetPath(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, entry.Path, 3)
	// stored back in lat,lng order
	assert.Equal(t, []float64{14.6, 121.0}, entry.Path[0])
	assert.Equal(t, []float64{14.65, 121.05}, entry.Path[1])
	assert.Equal(t, 15000.0, entry.DistanceMeters)
}

func TestGetPathAPIFailureDegradesToStraight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resolver := NewORSResolver("test-key", srv.URL, nil)
	a := models.Coordinates{Lat: 14.6, Lng: 121.0}
	b := models.Coordinates{Lat: 14.7, Lng: 121.1}

	entry, err := resolver.GetPath(context.Background(), a, b)
	require.NoError(t, err, "API failure must degrade, not fail")
	assert.Len(t, entry.Path, 2)
}

func TestAttachRoadPaths(t *testing.T) {
	mock := &testutil.MockPathResolver{}
	result := models.RouteAnalysisResult{
		Trips: []models.TripAnalysisResult{{
			TripNumber: 0,
			VehicleRoutes: []models.VehicleRouteInfo{{
				VehicleID: "v1",
				Stops: []models.StopInfo{
					{LocationID: "depot", Coordinates: models.Coordinates{Lat: 0, Lng: 0}},
					{LocationID: "a", Coordinates: models.Coordinates{Lat: 0, Lng: 0.01}},
					{LocationID: "depot", Coordinates: models.Coordinates{Lat: 0, Lng: 0}},
				},
			}},
		}},
	}

	AttachRoadPaths(context.Background(), mock, &result)

	info := result.Trips[0].VehicleRoutes[0]
	require.Len(t, info.RoadPaths, 2)
	assert.Equal(t, models.Coordinates{Lat: 0, Lng: 0}, info.RoadPaths[0].FromCoords)
	assert.Equal(t, models.Coordinates{Lat: 0, Lng: 0.01}, info.RoadPaths[0].ToCoords)
	assert.Len(t, mock.Calls, 2)
}

func TestAttachRoadPathsNilResolver(t *testing.T) {
	result := models.RouteAnalysisResult{}
	AttachRoadPaths(context.Background(), nil, &result)
	assert.Empty(t, result.Trips)
}
