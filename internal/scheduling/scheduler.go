// Package scheduling assigns clustered demand points to vehicles for one trip
// round, balancing distance, capacity and projected route time.
package scheduling

import (
	"log"
	"sort"

	"wco-route-planner/internal/cluster"
	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// Scoring weights for vehicle selection
const (
	distanceWeight = 0.5
	capacityWeight = 0.2
	timeWeight     = 0.2
	trafficWeight  = 0.1
)

// CollectionScheduler produces per-vehicle location assignments for a day.
// The time guard here is advisory; the ledger enforces the cap
// authoritatively at registration.
type CollectionScheduler struct {
	schedules    []*models.ScheduleEntry
	clusterer    *cluster.Clusterer
	maxDailyTime float64
	speedKPH     float64
}

// New creates a scheduler for the given schedules and limits
func New(schedules []*models.ScheduleEntry, maxDailyTime, speedKPH float64) *CollectionScheduler {
	if maxDailyTime <= 0 {
		maxDailyTime = geo.MaxDailyTime
	}
	if speedKPH <= 0 {
		speedKPH = geo.AverageSpeedKPH
	}
	return &CollectionScheduler{
		schedules:    schedules,
		clusterer:    cluster.NewClusterer(5),
		maxDailyTime: maxDailyTime,
		speedKPH:     speedKPH,
	}
}

// CollectionTimeFor resolves the per-stop service time from the schedule
// matching the first location's disposal frequency, defaulting to 15 minutes.
func (s *CollectionScheduler) CollectionTimeFor(locations []*models.Location) float64 {
	if len(locations) == 0 {
		return geo.DefaultCollectionTime
	}
	for _, entry := range s.schedules {
		if entry.Frequency == locations[0].DisposalSchedule {
			if entry.CollectionTimeMinutes > 0 {
				return entry.CollectionTimeMinutes
			}
			break
		}
	}
	return geo.DefaultCollectionTime
}

// OptimizeVehicleAssignments assigns locations to vehicles for one trip round.
// The result is indexed by vehicle position. forceAssign runs a second pass
// that places leftovers on the first vehicle with capacity regardless of time
// score; useGeoCluster groups the input geographically first.
func (s *CollectionScheduler) OptimizeVehicleAssignments(vehicles []*models.Vehicle, day int, locations []*models.Location, forceAssign, useGeoCluster bool) [][]*models.Location {
	assignments := make([][]*models.Location, len(vehicles))
	for i := range assignments {
		assignments[i] = []*models.Location{}
	}
	if len(locations) == 0 || len(vehicles) == 0 {
		return assignments
	}

	collectionTime := s.CollectionTimeFor(locations)
	log.Printf("[SCHEDULER] Day %d: assigning %d locations across %d vehicles (stop time %.0f min)",
		day, len(locations), len(vehicles), collectionTime)

	var clusters []cluster.GeographicCluster
	if useGeoCluster {
		clusters = s.clusterInput(vehicles, locations)
	} else {
		clusters = []cluster.GeographicCluster{{ID: "A", Locations: locations}}
	}

	loads := make([]float64, len(vehicles))
	times := make([]float64, len(vehicles))
	lastStop := make([]models.Coordinates, len(vehicles))
	for i, v := range vehicles {
		lastStop[i] = v.Depot
	}

	assigned := make(map[string]bool, len(locations))

	for _, cl := range clusters {
		members := sortClusterMembers(cl.Locations, collectionTime)

		for _, loc := range members {
			if assigned[loc.ID] {
				continue
			}

			best := -1
			bestScore := 0.0
			for vIdx, vehicle := range vehicles {
				remaining := vehicle.RemainingCapacity(loads[vIdx])
				if remaining < loc.WCOAmount {
					continue
				}

				km := geo.Distance(lastStop[vIdx], loc.GetCoords())
				travelMin := geo.EstimateTravelTime(km, s.speedKPH)
				projected := times[vIdx] + collectionTime + travelMin
				if projected > s.maxDailyTime {
					log.Printf("[SCHEDULER] Vehicle %s would reach %.1f min with %s, skipping", vehicle.ID, projected, loc.Name)
					continue
				}

				score := distanceWeight*(1/(1+km)) +
					capacityWeight*(loc.WCOAmount/remaining) +
					timeWeight*(1-projected/s.maxDailyTime) +
					trafficWeight*(1/(1+travelMin/60))

				if best < 0 || score > bestScore {
					best = vIdx
					bestScore = score
				}
			}

			if best < 0 {
				continue
			}

			assignments[best] = append(assignments[best], loc)
			loads[best] += loc.WCOAmount
			km := geo.Distance(lastStop[best], loc.GetCoords())
			times[best] += collectionTime + geo.EstimateTravelTime(km, s.speedKPH)
			lastStop[best] = loc.GetCoords()
			assigned[loc.ID] = true
		}
	}

	unassigned := make([]*models.Location, 0)
	for _, loc := range locations {
		if !assigned[loc.ID] {
			unassigned = append(unassigned, loc)
		}
	}
	if len(unassigned) > 0 {
		log.Printf("[SCHEDULER] %d locations unassigned after first pass", len(unassigned))
		for _, loc := range unassigned {
			log.Printf("[SCHEDULER] - %s (%.1fL)", loc.Name, loc.WCOAmount)
		}
	}

	if forceAssign && len(unassigned) > 0 {
		log.Printf("[SCHEDULER] Force-assign pass for %d locations", len(unassigned))
		for _, loc := range unassigned {
			for vIdx, vehicle := range vehicles {
				if vehicle.RemainingCapacity(loads[vIdx]) < loc.WCOAmount {
					continue
				}
				assignments[vIdx] = append(assignments[vIdx], loc)
				loads[vIdx] += loc.WCOAmount
				assigned[loc.ID] = true
				log.Printf("[SCHEDULER] Force-assigned %s to vehicle %s", loc.Name, vehicle.ID)
				break
			}
		}
	}

	return assignments
}

// clusterInput clusters the locations when requested; a single vehicle with
// multiple clusters collapses into one synthetic cluster so the solver sees
// the whole set.
func (s *CollectionScheduler) clusterInput(vehicles []*models.Vehicle, locations []*models.Location) []cluster.GeographicCluster {
	clusters := s.clusterer.ClusterLocations(locations, true)
	if len(vehicles) == 1 && len(clusters) > 1 {
		merged := make([]*models.Location, 0, len(locations))
		for _, cl := range clusters {
			merged = append(merged, cl.Locations...)
		}
		clusters = []cluster.GeographicCluster{{ID: "A", Locations: merged}}
	}
	return clusters
}

// sortClusterMembers orders members distance-first so near-depot locations
// anchor each vehicle's route; ties break on wco (desc), stop time, then id.
func sortClusterMembers(members []*models.Location, collectionTime float64) []*models.Location {
	sorted := make([]*models.Location, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DistanceFromDepot != b.DistanceFromDepot {
			return a.DistanceFromDepot < b.DistanceFromDepot
		}
		if a.WCOAmount != b.WCOAmount {
			return a.WCOAmount > b.WCOAmount
		}
		ta := geo.EstimateCollectionTime(a, collectionTime)
		tb := geo.EstimateCollectionTime(b, collectionTime)
		if ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	})
	return sorted
}

// CanSchedulesOverlap reports whether two frequencies share collection days
func CanSchedulesOverlap(freq1, freq2 int) bool {
	if freq1 == 0 || freq2 == 0 {
		return false
	}
	return freq1%freq2 == 0 || freq2%freq1 == 0
}

// CollectionsForDay returns the locations due on the given day: those whose
// disposal frequency divides the day index.
func CollectionsForDay(registry *models.LocationRegistry, schedules []*models.ScheduleEntry, day int) []*models.Location {
	active := make(map[int]bool)
	for _, entry := range schedules {
		if entry.Frequency > 0 && day%entry.Frequency == 0 {
			active[entry.Frequency] = true
		}
	}

	var due []*models.Location
	for _, loc := range registry.All() {
		if active[loc.DisposalSchedule] {
			due = append(due, loc)
		}
	}
	return due
}
