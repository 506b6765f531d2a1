package solver

import (
	"context"

	"wco-route-planner/internal/models"
)

// BasicSolver returns the input order untouched, sandwiched by depot markers.
// Used when optimization is off or the input is trivially small.
type BasicSolver struct{}

// NewBasicSolver creates the identity solver
func NewBasicSolver() *BasicSolver {
	return &BasicSolver{}
}

func (s *BasicSolver) ID() string   { return "schedule" }
func (s *BasicSolver) Name() string { return "Basic Solver" }
func (s *BasicSolver) Description() string {
	return "Simple solver that generates routes without optimization"
}

func (s *BasicSolver) Solve(ctx context.Context, locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) ([][]*models.Location, error) {
	routes := make([][]*models.Location, len(vehicles))
	for i := range vehicles {
		// each vehicle gets its own slice so callers can patch one route
		// without touching the others
		route := make([]*models.Location, 0, len(locations)+2)
		route = append(route, nil)
		route = append(route, locations...)
		route = append(route, nil)
		routes[i] = route
	}
	return routes, nil
}
