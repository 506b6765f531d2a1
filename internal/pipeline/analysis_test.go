package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wco-route-planner/internal/ledger"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/testutil"
)

func TestBuildAnalysisInjectsDepotStops(t *testing.T) {
	led := ledger.New(420, 30)
	vehicle := testutil.NewVehicle("v1", 500)
	a := testutil.NewLocation("a", 0, 0.01, 100, 7)
	b := testutil.NewLocation("b", 0, 0.02, 150, 7)

	require.True(t, led.RegisterCollection(vehicle, 7, 0, a, testutil.Depot, 15))
	require.True(t, led.RegisterCollection(vehicle, 7, 0, b, testutil.Depot, 15))

	registry := models.NewLocationRegistry(a, b)
	entry := testutil.NewSchedule("s7", 7, 15)

	result := BuildAnalysis(entry, led, registry, []*models.Vehicle{vehicle}, 7)

	assert.Equal(t, "s7_day7", result.ScheduleID)
	assert.Equal(t, "s7", result.BaseScheduleID)
	assert.Equal(t, 7, result.CollectionDay)
	assert.Equal(t, 1, result.TotalTrips)
	assert.Equal(t, 2, result.TotalStops)
	assert.Equal(t, 1, result.TotalVehicles)
	assert.InDelta(t, 250.0, result.TotalCollected, 1e-9)

	require.Len(t, result.Trips, 1)
	require.Len(t, result.Trips[0].VehicleRoutes, 1)

	info := result.Trips[0].VehicleRoutes[0]
	require.Len(t, info.Stops, 4, "two real stops sandwiched by depot stops")
	assert.Equal(t, "depot", info.Stops[0].LocationID)
	assert.Equal(t, 0, info.Stops[0].SequenceNumber)
	assert.Equal(t, "a", info.Stops[1].LocationID)
	assert.Equal(t, "b", info.Stops[2].LocationID)
	assert.Equal(t, "depot", info.Stops[3].LocationID)
	assert.Equal(t, 3, info.Stops[3].SequenceNumber)

	// cumulative loads are prefix sums, capacity remaining tracks them
	assert.Equal(t, 100.0, info.Stops[1].CumulativeLoad)
	assert.Equal(t, 250.0, info.Stops[2].CumulativeLoad)
	assert.Equal(t, 250.0, info.Stops[2].CumulativeLoad)
	assert.Equal(t, 400.0, info.Stops[1].RemainingCapacity)

	assert.InDelta(t, 0.5, info.Efficiency, 1e-9)
	assert.Greater(t, info.TotalDistance, 0.0, "includes the return leg")
}

func TestBuildAnalysisGroupsByTrip(t *testing.T) {
	led := ledger.New(420, 30)
	vehicle := testutil.NewVehicle("v1", 500)

	require.True(t, led.RegisterCollection(vehicle, 7, 0, testutil.NewLocation("a", 0, 0.01, 100, 7), testutil.Depot, 15))
	require.True(t, led.RegisterCollection(vehicle, 7, 1, testutil.NewLocation("b", 0, 0.02, 100, 7), testutil.Depot, 15))

	registry := models.NewLocationRegistry()
	result := BuildAnalysis(testutil.NewSchedule("s7", 7, 15), led, registry, []*models.Vehicle{vehicle}, 7)

	require.Len(t, result.Trips, 2)
	assert.Equal(t, 0, result.Trips[0].TripNumber)
	assert.Equal(t, 1, result.Trips[1].TripNumber)
	assert.Equal(t, 2, result.TotalTrips)
}

func TestBuildAnalysisEmptyDay(t *testing.T) {
	led := ledger.New(420, 30)
	registry := models.NewLocationRegistry()

	result := BuildAnalysis(testutil.NewSchedule("s7", 7, 15), led, registry, nil, 7)

	assert.Empty(t, result.Trips)
	assert.Equal(t, 0, result.TotalTrips)
	assert.Equal(t, 0.0, result.TotalCollected)
}
