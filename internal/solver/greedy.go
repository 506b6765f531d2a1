package solver

import (
	"context"
	"sort"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// minCapacityThreshold forces a depot return once remaining capacity falls
// below this many liters.
const minCapacityThreshold = 100.0

// GreedySolver prioritizes far-from-depot, high-volume locations and at each
// step drives to the closest feasible one. One-way constraints are not
// honored by this solver.
type GreedySolver struct{}

// NewGreedySolver creates the greedy solver
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{}
}

func (s *GreedySolver) ID() string   { return "greedy" }
func (s *GreedySolver) Name() string { return "Greedy Solver" }
func (s *GreedySolver) Description() string {
	return "Fast solver that prioritizes closest locations and maximum capacity utilization. Good for simple routes."
}

func (s *GreedySolver) Solve(ctx context.Context, locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) ([][]*models.Location, error) {
	// Farthest-first, largest-volume-first priority order
	prioritized := make([]*models.Location, len(locations))
	copy(prioritized, locations)
	sort.Slice(prioritized, func(i, j int) bool {
		if prioritized[i].DistanceFromDepot != prioritized[j].DistanceFromDepot {
			return prioritized[i].DistanceFromDepot > prioritized[j].DistanceFromDepot
		}
		return prioritized[i].WCOAmount > prioritized[j].WCOAmount
	})

	routes := make([][]*models.Location, 0, len(vehicles))
	for _, vehicle := range vehicles {
		routes = append(routes, s.buildRoute(vehicle, prioritized))
	}
	return routes, nil
}

func (s *GreedySolver) buildRoute(vehicle *models.Vehicle, prioritized []*models.Location) []*models.Location {
	route := []*models.Location{nil}
	remainingCapacity := vehicle.Capacity
	currentPos := vehicle.Depot

	available := make([]*models.Location, len(prioritized))
	copy(available, prioritized)

	for len(available) > 0 {
		bestIdx := -1
		bestDist := 0.0

		for idx, loc := range available {
			if loc.WCOAmount > remainingCapacity {
				continue
			}
			d := geo.Distance(currentPos, loc.GetCoords())
			if bestIdx < 0 || d < bestDist {
				bestIdx = idx
				bestDist = d
			}
		}

		if bestIdx < 0 {
			if remainingCapacity == vehicle.Capacity {
				// Nothing left fits even an empty vehicle
				break
			}
			route = append(route, nil)
			remainingCapacity = vehicle.Capacity
			currentPos = vehicle.Depot
			continue
		}

		loc := available[bestIdx]
		route = append(route, loc)
		remainingCapacity -= loc.WCOAmount
		currentPos = loc.GetCoords()
		available = append(available[:bestIdx], available[bestIdx+1:]...)

		if remainingCapacity < minCapacityThreshold {
			route = append(route, nil)
			remainingCapacity = vehicle.Capacity
			currentPos = vehicle.Depot
		}
	}

	if route[len(route)-1] != nil {
		route = append(route, nil)
	}
	return route
}
