package pipeline

import (
	"fmt"
	"log"
	"sort"
	"time"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/ledger"
	"wco-route-planner/internal/models"
)

// BuildAnalysis turns the ledger state for one collection day into the
// serializable result. Each trip gets its own VehicleRouteInfo set with
// synthetic depot stops sandwiching the real stops.
func BuildAnalysis(entry *models.ScheduleEntry, led *ledger.TripLedger, locations *models.LocationRegistry, vehicles []*models.Vehicle, day int) models.RouteAnalysisResult {
	collections := led.CollectionsForDay(day)

	result := models.RouteAnalysisResult{
		ScheduleID:     fmt.Sprintf("%s_day%d", entry.ID, day),
		BaseScheduleID: entry.ID,
		ScheduleName:   entry.Name,
		CollectionDay:  day,
		DateGenerated:  time.Now(),
	}

	byTrip := make(map[int][]*models.CollectionData)
	tripNumbers := make([]int, 0)
	for _, c := range collections {
		if _, seen := byTrip[c.TripNumber]; !seen {
			tripNumbers = append(tripNumbers, c.TripNumber)
		}
		byTrip[c.TripNumber] = append(byTrip[c.TripNumber], c)
	}
	sort.Ints(tripNumbers)

	depots := make(map[string]models.Coordinates)
	capacities := make(map[string]float64)
	for _, v := range vehicles {
		capacities[v.ID] = v.Capacity
		depots[v.ID] = v.Depot
	}

	activeVehicles := make(map[string]struct{})
	for _, tripNum := range tripNumbers {
		trip := models.TripAnalysisResult{TripNumber: tripNum}
		for _, c := range byTrip[tripNum] {
			info := buildVehicleRouteInfo(c, capacities[c.VehicleID], depots[c.VehicleID])
			trip.TotalDistance += info.TotalDistance
			trip.TotalCollected += info.TotalCollected
			trip.VehicleRoutes = append(trip.VehicleRoutes, info)

			activeVehicles[c.VehicleID] = struct{}{}
			result.TotalStops += info.TotalStops
			result.TotalLocations += info.TotalStops
		}
		result.Trips = append(result.Trips, trip)
		result.TotalDistance += trip.TotalDistance
		result.TotalCollected += trip.TotalCollected
	}
	result.TotalTrips = len(result.Trips)
	result.TotalVehicles = len(activeVehicles)

	checkCoverage(collections, locations, day)
	return result
}

// buildVehicleRouteInfo converts one trip's collection record into route info
// with depot stops injected at the start and end.
func buildVehicleRouteInfo(c *models.CollectionData, capacity float64, depot models.Coordinates) models.VehicleRouteInfo {
	info := models.VehicleRouteInfo{
		VehicleID:     c.VehicleID,
		Capacity:      capacity,
		CollectionDay: c.Day,
		TotalTrips:    1,
	}

	depotStop := func(seq int, distFromPrev float64) models.StopInfo {
		return models.StopInfo{
			Name:             "Depot",
			LocationID:       "depot",
			Coordinates:      depot,
			TripNumber:       c.TripNumber,
			VehicleCapacity:  capacity,
			SequenceNumber:   seq,
			CollectionDay:    c.Day,
			DistanceFromPrev: distFromPrev,
		}
	}

	info.Stops = append(info.Stops, depotStop(0, 0))

	prev := depot
	for i, stop := range c.Stops {
		info.Stops = append(info.Stops, models.StopInfo{
			Name:              stop.Name,
			LocationID:        stop.LocationID,
			Coordinates:       stop.Coordinates,
			WCOAmount:         stop.AmountCollected,
			TripNumber:        stop.TripNumber,
			CumulativeLoad:    stop.CumulativeLoad,
			RemainingCapacity: capacity - stop.CumulativeLoad,
			DistanceFromDepot: geo.Distance(depot, stop.Coordinates),
			DistanceFromPrev:  stop.DistanceFromPrev,
			VehicleCapacity:   capacity,
			SequenceNumber:    i + 1,
			CollectionDay:     stop.CollectionDay,
		})
		prev = stop.Coordinates
	}

	returnDist := geo.Distance(prev, depot)
	info.Stops = append(info.Stops, depotStop(len(c.Stops)+1, returnDist))

	info.TotalStops = len(c.Stops)
	info.TotalDistance = c.TotalDistance + returnDist
	info.TotalCollected = c.TotalCollected
	if capacity > 0 {
		info.Efficiency = info.TotalCollected / capacity
	}
	return info
}

// checkCoverage compares the day's registered stops against the locations due
// that day, including those owed by overlapping schedules whose frequency
// divides the day. Diagnostics only.
func checkCoverage(collections []*models.CollectionData, locations *models.LocationRegistry, day int) {
	due := make(map[string]string)
	for _, loc := range locations.All() {
		if loc.DisposalSchedule > 0 && day%loc.DisposalSchedule == 0 {
			due[loc.ID] = loc.Name
		}
	}

	seen := make(map[string]int)
	for _, c := range collections {
		for _, stop := range c.Stops {
			seen[stop.LocationID]++
		}
	}

	missing := 0
	for id, name := range due {
		if seen[id] == 0 {
			log.Printf("[ANALYSIS] Day %d missing location: %s (ID: %s)", day, name, id)
			missing++
		}
	}
	for id, count := range seen {
		if count > 1 {
			log.Printf("[ANALYSIS] Day %d duplicate collection: %s visited %d times", day, id, count)
		}
	}
	if missing == 0 && len(due) > 0 {
		log.Printf("[ANALYSIS] Day %d covers all %d scheduled locations", day, len(due))
	}
}
