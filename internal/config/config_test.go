package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `{
  "settings": {
    "depot_location": [14.5995, 120.9842],
    "vehicles": [
      {"id": "truck_1", "capacity": 1500},
      {"id": "truck_2", "capacity": 800}
    ],
    "constraints": {
      "one_way_roads": [[[14.60, 120.98], [14.61, 120.99]]]
    },
    "solver": "greedy",
    "max_daily_time": 360,
    "average_speed_kph": 25,
    "max_trips_per_day": 4
  },
  "schedules": [
    {"id": "weekly", "name": "Weekly", "frequency": 7, "file": "weekly.csv", "collection_time_minutes": 10}
  ]
}`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "greedy", cfg.Settings.Solver)
	assert.Equal(t, 360.0, cfg.Settings.MaxDailyTime)
	assert.Equal(t, 25.0, cfg.Settings.AverageSpeedKPH)
	assert.Equal(t, 4, cfg.Settings.MaxTripsPerDay)
	require.Len(t, cfg.Settings.Vehicles, 2)
	assert.Equal(t, 1500.0, cfg.Settings.Vehicles[0].Capacity)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
	  "settings": {
	    "depot_location": [14.5995, 120.9842],
	    "vehicles": [{"id": "v1", "capacity": 500}]
	  },
	  "schedules": [{"id": "s", "name": "S", "frequency": 7}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "ortools", cfg.Settings.Solver)
	assert.Equal(t, 420.0, cfg.Settings.MaxDailyTime)
	assert.Equal(t, 30.0, cfg.Settings.AverageSpeedKPH)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no vehicles", `{"settings": {"depot_location": [1, 2], "vehicles": []}, "schedules": [{"id": "s", "name": "S", "frequency": 7}]}`},
		{"zero capacity", `{"settings": {"depot_location": [1, 2], "vehicles": [{"id": "v", "capacity": 0}]}, "schedules": [{"id": "s", "name": "S", "frequency": 7}]}`},
		{"no schedules", `{"settings": {"depot_location": [1, 2], "vehicles": [{"id": "v", "capacity": 10}]}, "schedules": []}`},
		{"bad depot", `{"settings": {"depot_location": [1], "vehicles": [{"id": "v", "capacity": 10}]}, "schedules": [{"id": "s", "name": "S", "frequency": 7}]}`},
		{"bad one-way", `{"settings": {"depot_location": [1, 2], "vehicles": [{"id": "v", "capacity": 10}], "constraints": {"one_way_roads": [[[1]]]}}, "schedules": [{"id": "s", "name": "S", "frequency": 7}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			var invalidErr *ErrInvalidConfig
			require.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestConversionHelpers(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	depot := cfg.Depot()
	assert.InDelta(t, 14.5995, depot.Lat, 1e-9)

	vehicles := cfg.Vehicles()
	require.Len(t, vehicles, 2)
	assert.Equal(t, "truck_1", vehicles[0].ID)
	assert.Equal(t, depot, vehicles[0].Depot)
	assert.Equal(t, depot, vehicles[1].Depot)

	constraints := cfg.Constraints()
	require.Len(t, constraints.OneWayRoads, 1)
	assert.InDelta(t, 14.60, constraints.OneWayRoads[0].From.Lat, 1e-9)
	assert.InDelta(t, 14.61, constraints.OneWayRoads[0].To.Lat, 1e-9)

	entries := cfg.ScheduleEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "weekly", entries[0].ID)
	assert.Equal(t, 7, entries[0].Frequency)
	assert.Equal(t, 10.0, entries[0].CollectionTimeMinutes)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("ORS_BASE_URL", "http://localhost:9999")

	env := LoadEnv()
	assert.Equal(t, "test-key", env.ORSAPIKey)
	assert.Equal(t, "http://localhost:9999", env.ORSBaseURL)
}
