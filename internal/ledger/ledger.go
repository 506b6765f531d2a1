// Package ledger tracks registered collections per (vehicle, day, trip) and
// enforces the daily time cap. All mutable trip accounting lives here;
// vehicles themselves are immutable.
package ledger

import (
	"log"
	"sort"
	"sync"
	"time"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

type tripKey struct {
	VehicleID string
	Day       int
	Trip      int
}

// TripLedger records collections and daily time accounting. It is safe for
// concurrent registration when schedules are fanned out across goroutines.
type TripLedger struct {
	mu sync.Mutex

	collections      map[tripKey]*models.CollectionData
	totalTimes       map[int]float64
	exceedsDailyTime map[int]bool

	totalTrips int
	totalStops int

	maxDailyTime float64
	speedKPH     float64
}

// New creates a ledger with the given daily time cap (minutes) and travel speed
func New(maxDailyTime, speedKPH float64) *TripLedger {
	if maxDailyTime <= 0 {
		maxDailyTime = geo.MaxDailyTime
	}
	if speedKPH <= 0 {
		speedKPH = geo.AverageSpeedKPH
	}
	return &TripLedger{
		collections:      make(map[tripKey]*models.CollectionData),
		totalTimes:       make(map[int]float64),
		exceedsDailyTime: make(map[int]bool),
		maxDailyTime:     maxDailyTime,
		speedKPH:         speedKPH,
	}
}

// RegisterCollection records a stop for (vehicle, day, trip). It refuses
// registrations when the day is already flagged over time and refuses
// duplicate visits within the same trip. A registration that pushes the day
// past the cap is still appended but flips the day's exceeds flag; the caller
// is expected to reset the day before registering further stops.
func (l *TripLedger) RegisterCollection(vehicle *models.Vehicle, day, trip int, loc *models.Location, depot models.Coordinates, collectionTimeMinutes float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exceedsDailyTime[day] {
		log.Printf("[LEDGER] Day %d over time budget, refusing %s", day, loc.Name)
		return false
	}

	key := tripKey{VehicleID: vehicle.ID, Day: day, Trip: trip}
	data, exists := l.collections[key]
	if !exists {
		data = &models.CollectionData{
			VehicleID:         vehicle.ID,
			Day:               day,
			TripNumber:        trip,
			VisitedIDs:        make(map[string]struct{}),
			Timestamp:         time.Now(),
			SpeedKPH:          l.speedKPH,
			CollectionTimeMin: collectionTimeMinutes,
		}
		l.collections[key] = data
		l.totalTrips++
	}

	if _, visited := data.VisitedIDs[loc.ID]; visited {
		log.Printf("[LEDGER] Location %s already visited on day %d by vehicle %s, ignoring duplicate", loc.Name, day, vehicle.ID)
		return false
	}

	var distanceFromPrev float64
	var prev *models.Coordinates
	if len(data.Stops) > 0 {
		prevCoords := data.Stops[len(data.Stops)-1].Coordinates
		prev = &prevCoords
		distanceFromPrev = geo.Distance(prevCoords, loc.GetCoords())
	} else {
		distanceFromPrev = geo.Distance(depot, loc.GetCoords())
	}

	collection, travel, depotReturn := geo.StopTimes(loc, &depot, prev, collectionTimeMinutes, l.speedKPH)

	projected := l.totalTimes[day] + geo.TotalStopTime(collection, travel, depotReturn)
	if projected > l.maxDailyTime {
		log.Printf("[LEDGER] Day %d would reach %.1f min (cap %.0f), flagging", day, projected, l.maxDailyTime)
		l.exceedsDailyTime[day] = true
	}
	l.totalTimes[day] = projected

	data.Stops = append(data.Stops, models.CollectionStop{
		LocationID:        loc.ID,
		Name:              loc.Name,
		Coordinates:       loc.GetCoords(),
		AmountCollected:   loc.WCOAmount,
		CumulativeLoad:    data.TotalCollected + loc.WCOAmount,
		DistanceFromPrev:  distanceFromPrev,
		TripNumber:        trip,
		CollectionDay:     day,
		CollectionTimeSec: collection * 60,
		TravelTimeSec:     travel * 60,
	})
	data.VisitedIDs[loc.ID] = struct{}{}
	data.TotalCollected += loc.WCOAmount
	data.TotalDistance += distanceFromPrev
	l.totalStops++

	return true
}

// VehicleRoute concatenates all stops a vehicle made on a day, in insertion
// order across its trips.
func (l *TripLedger) VehicleRoute(vehicleID string, day int) models.VehicleRoute {
	l.mu.Lock()
	defer l.mu.Unlock()

	route := models.VehicleRoute{VehicleID: vehicleID}
	for _, data := range l.sortedCollections() {
		if data.VehicleID != vehicleID || data.Day != day {
			continue
		}
		route.Stops = append(route.Stops, data.Stops...)
		route.TotalDistance += data.TotalDistance
		route.TotalCollected += data.TotalCollected
	}
	return route
}

// VisitedLocations returns the ids a vehicle visited on a day across all trips
func (l *TripLedger) VisitedLocations(vehicleID string, day int) map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	visited := make(map[string]struct{})
	for key, data := range l.collections {
		if key.VehicleID != vehicleID || key.Day != day {
			continue
		}
		for id := range data.VisitedIDs {
			visited[id] = struct{}{}
		}
	}
	return visited
}

// CollectionsForDay returns the day's collection data ordered by
// (vehicle, trip)
func (l *TripLedger) CollectionsForDay(day int) []*models.CollectionData {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []*models.CollectionData
	for _, data := range l.sortedCollections() {
		if data.Day == day {
			result = append(result, data)
		}
	}
	return result
}

func (l *TripLedger) sortedCollections() []*models.CollectionData {
	keys := make([]tripKey, 0, len(l.collections))
	for key := range l.collections {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		if keys[i].VehicleID != keys[j].VehicleID {
			return keys[i].VehicleID < keys[j].VehicleID
		}
		return keys[i].Trip < keys[j].Trip
	})

	result := make([]*models.CollectionData, len(keys))
	for i, key := range keys {
		result[i] = l.collections[key]
	}
	return result
}

// ExceedsDailyTime reports whether the day's accumulated time breached the cap
func (l *TripLedger) ExceedsDailyTime(day int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exceedsDailyTime[day]
}

// TotalTime returns the accumulated minutes registered against a day
func (l *TripLedger) TotalTime(day int) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalTimes[day]
}

// ResetDay zeroes a day's time accounting and clears its exceeds flag.
// The day index itself never rolls; this mirrors the legacy breach handling
// where the driver restarts the day's clock and keeps registering.
func (l *TripLedger) ResetDay(day int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalTimes[day] = 0
	delete(l.exceedsDailyTime, day)
}

// TotalTrips returns the number of (vehicle, day, trip) keys created
func (l *TripLedger) TotalTrips() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalTrips
}

// TotalStops returns the number of accepted registrations
func (l *TripLedger) TotalStops() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalStops
}
