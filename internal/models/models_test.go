package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleCapacityAccounting(t *testing.T) {
	v := &Vehicle{ID: "v1", Capacity: 500}

	assert.Equal(t, 500.0, v.RemainingCapacity(0))
	assert.Equal(t, 200.0, v.RemainingCapacity(300))

	assert.False(t, v.NeedsDepotReturn(300, 200))
	assert.True(t, v.NeedsDepotReturn(300, 201))
}

func TestLocationGetCoords(t *testing.T) {
	loc := &Location{ID: "a", Lat: 14.6, Lng: 121.0}
	assert.Equal(t, Coordinates{Lat: 14.6, Lng: 121.0}, loc.GetCoords())
}

func TestCollectionDataVisitedIDsNotSerialized(t *testing.T) {
	data := &CollectionData{
		VehicleID:  "v1",
		VisitedIDs: map[string]struct{}{"a": {}},
	}

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "VisitedIDs")
	assert.Contains(t, string(raw), "vehicle_id")
}
