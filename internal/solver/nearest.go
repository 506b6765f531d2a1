package solver

import (
	"context"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// depotReturnFraction triggers an early depot return once a trip reaches this
// share of the vehicle's capacity.
const depotReturnFraction = 0.9

// NearestNeighborSolver always drives to the closest feasible unvisited
// location, inserting depot markers when capacity runs out. One-way
// constraints are not honored by this solver.
type NearestNeighborSolver struct{}

// NewNearestNeighborSolver creates the nearest-neighbor solver
func NewNearestNeighborSolver() *NearestNeighborSolver {
	return &NearestNeighborSolver{}
}

func (s *NearestNeighborSolver) ID() string   { return "nearest" }
func (s *NearestNeighborSolver) Name() string { return "Nearest Neighbor Solver" }
func (s *NearestNeighborSolver) Description() string {
	return "Simple solver that always chooses the closest next location. Fast but may not find optimal solutions."
}

func (s *NearestNeighborSolver) Solve(ctx context.Context, locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) ([][]*models.Location, error) {
	routes := make([][]*models.Location, 0, len(vehicles))

	for _, vehicle := range vehicles {
		route := []*models.Location{nil}
		currentLoad := 0.0
		currentPos := vehicle.Depot
		atDepot := true

		visited := make([]bool, len(locations))
		left := len(locations)

		for left > 0 {
			bestIdx := -1
			bestDist := 0.0

			for idx, loc := range locations {
				if visited[idx] {
					continue
				}
				if vehicle.NeedsDepotReturn(currentLoad, loc.WCOAmount) && !atDepot {
					route = append(route, nil)
					currentLoad = 0
					currentPos = vehicle.Depot
					atDepot = true
				}

				d := geo.Distance(currentPos, loc.GetCoords())
				if bestIdx < 0 || d < bestDist {
					bestIdx = idx
					bestDist = d
				}
			}

			if bestIdx < 0 {
				break
			}

			loc := locations[bestIdx]
			route = append(route, loc)
			currentLoad += loc.WCOAmount
			currentPos = loc.GetCoords()
			atDepot = false
			visited[bestIdx] = true
			left--

			if currentLoad >= depotReturnFraction*vehicle.Capacity {
				route = append(route, nil)
				currentLoad = 0
				currentPos = vehicle.Depot
				atDepot = true
			}
		}

		if route[len(route)-1] != nil {
			route = append(route, nil)
		}
		routes = append(routes, route)
	}

	return routes, nil
}
