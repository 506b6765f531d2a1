package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/solver"
	"wco-route-planner/internal/testutil"
)

func testPipeline(vehicles []*models.Vehicle, solverID string, maxDailyTime float64) *Pipeline {
	registry := solver.NewDefaultRegistry(solver.Options{
		SpeedKPH:      30,
		MaxDailyTime:  maxDailyTime,
		WallClockSecs: 1,
	})
	return New(Config{
		Vehicles:     vehicles,
		Solvers:      registry,
		SolverID:     solverID,
		MaxDailyTime: maxDailyTime,
		SpeedKPH:     30,
	})
}

func collectStopIDs(result models.RouteAnalysisResult) map[string]int {
	seen := make(map[string]int)
	for _, trip := range result.Trips {
		for _, route := range trip.VehicleRoutes {
			for _, stop := range route.Stops {
				if stop.LocationID == "depot" {
					continue
				}
				seen[stop.LocationID]++
			}
		}
	}
	return seen
}

func TestProcessUnknownSolverIsFatal(t *testing.T) {
	p := testPipeline([]*models.Vehicle{testutil.NewVehicle("v1", 100)}, "no-such-solver", 420)
	registry := models.NewLocationRegistry(testutil.NewLocation("a", 0, 0.01, 20, 1))

	_, _, err := p.Process(context.Background(), []*models.ScheduleEntry{testutil.NewSchedule("s", 1, 5)}, registry)

	var unknownErr *solver.ErrUnknownSolver
	require.ErrorAs(t, err, &unknownErr)
}

func TestProcessTwoStopsSingleTrip(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 100)
	p := testPipeline([]*models.Vehicle{vehicle}, "ortools", 120)

	a := testutil.NewLocation("a", 0, 0.01, 20, 1)
	b := testutil.NewLocation("b", 0.01, 0, 30, 1)
	registry := models.NewLocationRegistry(a, b)

	results, reports, err := p.Process(context.Background(),
		[]*models.ScheduleEntry{testutil.NewSchedule("s", 1, 5)}, registry)
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, "s_day1", result.ScheduleID)
	assert.Equal(t, "s", result.BaseScheduleID)
	assert.Equal(t, 1, result.CollectionDay)
	assert.Equal(t, 1, result.TotalTrips)
	assert.InDelta(t, 50.0, result.TotalCollected, 1e-9)

	// closed tour over both stops; haversine is symmetric so the total is
	// the same in either visit order
	expected := geo.Distance(testutil.Depot, a.GetCoords()) +
		geo.Distance(a.GetCoords(), b.GetCoords()) +
		geo.Distance(b.GetCoords(), testutil.Depot)
	assert.InDelta(t, expected, result.TotalDistance, 1e-6)

	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].MissingLocations)
}

func TestProcessSplitsAcrossTripsAndVehicles(t *testing.T) {
	vehicles := []*models.Vehicle{testutil.NewVehicle("v1", 50), testutil.NewVehicle("v2", 50)}
	p := testPipeline(vehicles, "ortools", 420)

	registry := models.NewLocationRegistry(testutil.GridLocations(4, 30, 7)...)

	results, reports, err := p.Process(context.Background(),
		[]*models.ScheduleEntry{testutil.NewSchedule("s7", 7, 15)}, registry)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, reports[0].MissingLocations)

	result := results[0]
	assert.Equal(t, 7, result.CollectionDay)

	seen := collectStopIDs(result)
	assert.Len(t, seen, 4)
	for id, count := range seen {
		assert.Equal(t, 1, count, "location %s appears %d times", id, count)
	}

	// 30L stops against 50L capacity force one stop per trip
	for _, trip := range result.Trips {
		for _, route := range trip.VehicleRoutes {
			assert.LessOrEqual(t, route.TotalCollected, 50.0)
		}
	}
	assert.True(t, result.TotalTrips >= 2 || result.TotalVehicles == 2)
}

func TestProcessTimeCapResetsAndFinishes(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "greedy", 30)

	registry := models.NewLocationRegistry(testutil.GridLocations(10, 50, 3)...)

	results, reports, err := p.Process(context.Background(),
		[]*models.ScheduleEntry{testutil.NewSchedule("s3", 3, 15)}, registry)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, reports[0].MissingLocations, "every location must eventually register")

	seen := collectStopIDs(results[0])
	assert.Len(t, seen, 10)
}

func TestProcessReportsOversizedLocation(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 100)
	p := testPipeline([]*models.Vehicle{vehicle}, "ortools", 420)

	registry := models.NewLocationRegistry(
		testutil.NewLocation("ok", 0, 0.01, 50, 7),
		testutil.NewLocation("huge", 0, 0.02, 900, 7),
	)

	results, reports, err := p.Process(context.Background(),
		[]*models.ScheduleEntry{testutil.NewSchedule("s7", 7, 15)}, registry)
	require.NoError(t, err)

	require.Len(t, reports, 1)
	require.Len(t, reports[0].MissingLocations, 1)
	assert.Equal(t, "huge", reports[0].MissingLocations[0].LocationID)
	assert.Equal(t, 900.0, reports[0].TotalMissingWCO)

	seen := collectStopIDs(results[0])
	assert.Contains(t, seen, "ok")
	assert.NotContains(t, seen, "huge")
}

func TestProcessSchedulesSortedByFrequency(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "greedy", 420)

	registry := models.NewLocationRegistry(
		testutil.NewLocation("weekly", 0, 0.01, 100, 7),
		testutil.NewLocation("biweek", 0, 0.02, 100, 14),
		testutil.NewLocation("fast", 0, 0.03, 100, 3),
	)
	schedules := []*models.ScheduleEntry{
		testutil.NewSchedule("s14", 14, 15),
		testutil.NewSchedule("s3", 3, 15),
		testutil.NewSchedule("s7", 7, 15),
	}

	results, _, err := p.Process(context.Background(), schedules, registry)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, results[0].CollectionDay)
	assert.Equal(t, 7, results[1].CollectionDay)
	assert.Equal(t, 14, results[2].CollectionDay)
}

func TestProcessCombinesOverlappingScheduleDays(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "greedy", 420)

	registry := models.NewLocationRegistry(
		testutil.NewLocation("weekly", 0, 0.01, 100, 7),
		testutil.NewLocation("biweek", 0, 0.02, 100, 14),
	)
	schedules := []*models.ScheduleEntry{
		testutil.NewSchedule("s7", 7, 15),
		testutil.NewSchedule("s14", 14, 15),
	}

	results, reports, err := p.Process(context.Background(), schedules, registry)
	require.NoError(t, err)
	require.Len(t, results, 2)

	day7 := collectStopIDs(results[0])
	assert.Contains(t, day7, "weekly")
	assert.NotContains(t, day7, "biweek")

	// day 14 is also a weekly collection day, so both locations are due
	day14 := collectStopIDs(results[1])
	assert.Contains(t, day14, "weekly")
	assert.Contains(t, day14, "biweek")

	for _, report := range reports {
		assert.Empty(t, report.MissingLocations)
	}
}

func TestProcessCancellation(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "greedy", 420)
	registry := models.NewLocationRegistry(testutil.GridLocations(5, 50, 7)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Process(ctx, []*models.ScheduleEntry{testutil.NewSchedule("s7", 7, 15)}, registry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDirectRegistersEverything(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "nearest", 420)
	registry := models.NewLocationRegistry(testutil.GridLocations(5, 50, 7)...)

	result, err := p.RunDirect(context.Background(), registry, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CollectionDay)
	assert.Equal(t, "direct_day1", result.ScheduleID)
	seen := collectStopIDs(result)
	assert.Len(t, seen, 5)
}

func TestLazyPatchInsertsSingleMissing(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 300)
	p := testPipeline([]*models.Vehicle{vehicle}, "ortools", 420)

	a := testutil.NewLocation("a", 0, 0.01, 100, 7)
	b := testutil.NewLocation("b", 0, 0.02, 100, 7)
	dropped := testutil.NewLocation("c", 0, 0.03, 50, 7)

	assignments := [][]*models.Location{{a, b, dropped}}
	routes := [][]*models.Location{{nil, a, b, nil}}

	patched := p.lazyPatch(assignments, routes)
	assert.Contains(t, testutil.StopIDs(patched[0]), "c")
}

func TestLazyPatchSkipsWhenCapacityWouldOverflow(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 210)
	p := testPipeline([]*models.Vehicle{vehicle}, "ortools", 420)

	a := testutil.NewLocation("a", 0, 0.01, 100, 7)
	b := testutil.NewLocation("b", 0, 0.02, 100, 7)
	dropped := testutil.NewLocation("c", 0, 0.03, 50, 7)

	assignments := [][]*models.Location{{a, b, dropped}}
	routes := [][]*models.Location{{nil, a, b, nil}}

	patched := p.lazyPatch(assignments, routes)
	assert.NotContains(t, testutil.StopIDs(patched[0]), "c")
}

func TestLazyPatchIgnoresMultipleMissing(t *testing.T) {
	vehicle := testutil.NewVehicle("v1", 1000)
	p := testPipeline([]*models.Vehicle{vehicle}, "ortools", 420)

	a := testutil.NewLocation("a", 0, 0.01, 100, 7)
	b := testutil.NewLocation("b", 0, 0.02, 100, 7)
	c := testutil.NewLocation("c", 0, 0.03, 50, 7)

	assignments := [][]*models.Location{{a, b, c}}
	routes := [][]*models.Location{{nil, a, nil}}

	patched := p.lazyPatch(assignments, routes)
	assert.Equal(t, []string{"a"}, testutil.StopIDs(patched[0]))
}
