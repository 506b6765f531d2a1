// Package geo provides haversine distances and the travel/collection time
// estimators shared by the scheduler, solvers and ledger.
package geo

import (
	"math"

	"wco-route-planner/internal/models"
)

const (
	// EarthRadiusKM is the mean Earth radius used by the haversine formula
	EarthRadiusKM = 6371.0

	// AverageSpeedKPH is the assumed vehicle speed in the service area
	AverageSpeedKPH = 30.0

	// MaxDailyTime is the per-vehicle working day in minutes
	MaxDailyTime = 7 * 60.0

	// DefaultCollectionTime is the per-establishment service time in minutes
	DefaultCollectionTime = 15.0
)

// UseVolumeScaledTime re-enables the historic volume-scaled collection time
// formula. The constant-cap behavior is the supported default.
var UseVolumeScaledTime = false

// Distance returns the haversine distance between two points in kilometers
func Distance(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lng1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lng2 := b.Lng * math.Pi / 180

	dlat := lat2 - lat1
	dlng := lng2 - lng1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKM * c
}

// EstimateTravelTime converts a distance at the given speed into minutes
func EstimateTravelTime(distanceKM, speedKPH float64) float64 {
	return distanceKM / speedKPH * 60
}

// EstimateCollectionTime returns the service time for a location in minutes.
// The active behavior returns the cap; the volume-scaled formula is retained
// behind UseVolumeScaledTime.
func EstimateCollectionTime(loc *models.Location, maxStopTime float64) float64 {
	if UseVolumeScaledTime {
		base := 3 + (loc.WCOAmount/100)*4
		return math.Min(maxStopTime, base)
	}
	return maxStopTime
}

// StopTimes computes (collection, travel, depotReturn) minutes for a stop.
// Travel uses prev->loc when prev is set, otherwise depot->loc; depotReturn
// is loc->depot.
func StopTimes(loc *models.Location, depot, prev *models.Coordinates, collectionTimeMinutes, speedKPH float64) (collection, travel, depotReturn float64) {
	collection = EstimateCollectionTime(loc, collectionTimeMinutes)

	switch {
	case prev != nil:
		travel = EstimateTravelTime(Distance(*prev, loc.GetCoords()), speedKPH)
	case depot != nil:
		travel = EstimateTravelTime(Distance(*depot, loc.GetCoords()), speedKPH)
	}

	if depot != nil {
		depotReturn = EstimateTravelTime(Distance(loc.GetCoords(), *depot), speedKPH)
	}
	return collection, travel, depotReturn
}

// TotalStopTime sums the three stop time components
func TotalStopTime(collection, travel, depotReturn float64) float64 {
	return collection + travel + depotReturn
}
