// Package testutil provides fixtures and mocks shared by the package tests.
package testutil

import (
	"context"
	"fmt"

	"wco-route-planner/internal/models"
)

// Depot is the fixed depot used across tests
var Depot = models.Coordinates{Lat: 0, Lng: 0}

// NewLocation builds a location with sensible defaults for tests
func NewLocation(id string, lat, lng, wco float64, frequency int) *models.Location {
	return &models.Location{
		ID:               id,
		Name:             "Location " + id,
		Lat:              lat,
		Lng:              lng,
		WCOAmount:        wco,
		DisposalSchedule: frequency,
	}
}

// NewVehicle builds a vehicle parked at the shared test depot
func NewVehicle(id string, capacity float64) *models.Vehicle {
	return &models.Vehicle{ID: id, Capacity: capacity, Depot: Depot}
}

// NewSchedule builds a schedule entry with the given frequency
func NewSchedule(id string, frequency int, collectionMinutes float64) *models.ScheduleEntry {
	return &models.ScheduleEntry{
		ID:                    id,
		Name:                  "Schedule " + id,
		Frequency:             frequency,
		CollectionTimeMinutes: collectionMinutes,
	}
}

// GridLocations lays count locations on a small lat/lng grid near the depot,
// all with the same amount and frequency. Spacing 0.01 degrees is roughly 1km.
func GridLocations(count int, wco float64, frequency int) []*models.Location {
	locations := make([]*models.Location, 0, count)
	for i := 0; i < count; i++ {
		locations = append(locations, NewLocation(
			fmt.Sprintf("loc_%03d", i),
			float64(i%5)*0.01+0.01,
			float64(i/5)*0.01+0.01,
			wco,
			frequency,
		))
	}
	return locations
}

// StopIDs extracts the non-nil location ids from a solver route
func StopIDs(route []*models.Location) []string {
	ids := make([]string, 0, len(route))
	for _, loc := range route {
		if loc != nil {
			ids = append(ids, loc.ID)
		}
	}
	return ids
}

// PathCall tracks a call to the mock path resolver
type PathCall struct {
	Origin models.Coordinates
	Dest   models.Coordinates
}

// MockPathResolver returns straight two-point paths and records calls
type MockPathResolver struct {
	Calls []PathCall
	Err   error
}

func (m *MockPathResolver) GetPath(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error) {
	m.Calls = append(m.Calls, PathCall{Origin: origin, Dest: dest})
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.RoutePathCacheEntry{
		Origin:      origin,
		Destination: dest,
		Path:        [][]float64{{origin.Lat, origin.Lng}, {dest.Lat, dest.Lng}},
	}, nil
}
