package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/testutil"
)

func prepared(locations []*models.Location) []*models.Location {
	for _, loc := range locations {
		loc.DistanceFromDepot = geo.Distance(testutil.Depot, loc.GetCoords())
	}
	return locations
}

func noConstraints() models.RouteConstraints {
	return models.RouteConstraints{}
}

// routeLoadWithinCapacity checks every trip segment against the capacity
func routeLoadWithinCapacity(t *testing.T, route []*models.Location, capacity float64) {
	t.Helper()
	load := 0.0
	for _, loc := range route {
		if loc == nil {
			load = 0
			continue
		}
		load += loc.WCOAmount
		assert.LessOrEqual(t, load, capacity)
	}
}

func TestRegistryGetAndList(t *testing.T) {
	r := NewDefaultRegistry(DefaultOptions())

	for _, id := range []string{"ortools", "greedy", "nearest", "schedule"} {
		s, err := r.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
	}

	infos := r.List()
	require.Len(t, infos, 4)
	assert.Equal(t, "ortools", infos[0].ID)
}

func TestRegistryUnknownSolver(t *testing.T) {
	r := NewDefaultRegistry(DefaultOptions())
	_, err := r.Get("simulated-annealing")

	var unknownErr *ErrUnknownSolver
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "simulated-annealing", unknownErr.SolverID)
	assert.Len(t, unknownErr.Available, 4)
}

func TestRouteDistance(t *testing.T) {
	route := prepared([]*models.Location{
		testutil.NewLocation("a", 0, 0.01, 100, 7),
		testutil.NewLocation("b", 0, 0.02, 100, 7),
	})
	withMarkers := []*models.Location{nil, route[0], route[1], nil}

	expected := geo.Distance(testutil.Depot, route[0].GetCoords()) +
		geo.Distance(route[0].GetCoords(), route[1].GetCoords()) +
		geo.Distance(route[1].GetCoords(), testutil.Depot)
	assert.InDelta(t, expected, RouteDistance(withMarkers, testutil.Depot), 1e-9)
}

func TestBasicSolverIdentity(t *testing.T) {
	s := NewBasicSolver()
	locations := prepared(testutil.GridLocations(3, 100, 7))
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 1000)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)
	require.Len(t, routes, 1)

	assert.Nil(t, routes[0][0])
	assert.Nil(t, routes[0][len(routes[0])-1])
	assert.Equal(t, []string{"loc_000", "loc_001", "loc_002"}, testutil.StopIDs(routes[0]))
}

func TestBasicSolverRoutesDoNotShareBacking(t *testing.T) {
	s := NewBasicSolver()
	locations := prepared(testutil.GridLocations(2, 100, 7))
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 1000), testutil.NewVehicle("v2", 1000)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)
	require.Len(t, routes, 2)

	routes[0][1] = nil
	assert.Equal(t, []string{"loc_000", "loc_001"}, testutil.StopIDs(routes[1]),
		"mutating one vehicle's route must not leak into another's")
}

func TestNearestNeighborVisitsAll(t *testing.T) {
	s := NewNearestNeighborSolver()
	locations := prepared(testutil.GridLocations(6, 100, 7))
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 1000)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)
	require.Len(t, routes, 1)

	assert.ElementsMatch(t,
		[]string{"loc_000", "loc_001", "loc_002", "loc_003", "loc_004", "loc_005"},
		testutil.StopIDs(routes[0]))
	routeLoadWithinCapacity(t, routes[0], 1000)
}

func TestNearestNeighborInsertsDepotReturns(t *testing.T) {
	s := NewNearestNeighborSolver()
	// 4 x 300L with 500L capacity forces multiple trips
	locations := prepared(testutil.GridLocations(4, 300, 7))
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 500)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)

	assert.Len(t, testutil.StopIDs(routes[0]), 4)
	routeLoadWithinCapacity(t, routes[0], 500)

	// more than the sandwiching pair of markers means multiple trips
	markers := 0
	for _, loc := range routes[0] {
		if loc == nil {
			markers++
		}
	}
	assert.Greater(t, markers, 2)
}

func TestGreedySolverRespectsCapacity(t *testing.T) {
	s := NewGreedySolver()
	locations := prepared(testutil.GridLocations(5, 200, 7))
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 450)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)

	assert.Len(t, testutil.StopIDs(routes[0]), 5)
	routeLoadWithinCapacity(t, routes[0], 450)
}

func TestGreedySolverSkipsOversized(t *testing.T) {
	s := NewGreedySolver()
	locations := prepared([]*models.Location{
		testutil.NewLocation("ok", 0, 0.01, 100, 7),
		testutil.NewLocation("huge", 0, 0.02, 900, 7),
	})
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 500)}

	routes, err := s.Solve(context.Background(), locations, vehicles, noConstraints())
	require.NoError(t, err)

	ids := testutil.StopIDs(routes[0])
	assert.Contains(t, ids, "ok")
	assert.NotContains(t, ids, "huge")
}
