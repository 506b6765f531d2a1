// Package solver contains the CVRP solver family. Every solver consumes
// (locations, vehicles, constraints) and returns per-vehicle ordered routes
// where nil marks a trip boundary (depot start/end).
package solver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// Solver produces per-vehicle routes over the given locations
type Solver interface {
	Solve(ctx context.Context, locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) ([][]*models.Location, error)
	ID() string
	Name() string
	Description() string
}

// Info describes a registered solver for the API surface
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrUnknownSolver is returned when a solver id is not registered
type ErrUnknownSolver struct {
	SolverID  string
	Available []string
}

func (e *ErrUnknownSolver) Error() string {
	return fmt.Sprintf("unknown solver %q, choose from: %v", e.SolverID, e.Available)
}

// Registry maps solver ids to implementations. It is owned by the caller and
// injected at the boundary rather than held as package state.
type Registry struct {
	mu      sync.RWMutex
	solvers map[string]Solver
	order   []string
}

// NewRegistry creates an empty solver registry
func NewRegistry() *Registry {
	return &Registry{solvers: make(map[string]Solver)}
}

// Register adds a solver, replacing any previous solver with the same id
func (r *Registry) Register(s Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.solvers[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.solvers[s.ID()] = s
}

// Get returns the solver for the id
func (r *Registry) Get(id string) (Solver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.solvers[id]
	if !ok {
		available := make([]string, len(r.order))
		copy(available, r.order)
		return nil, &ErrUnknownSolver{SolverID: id, Available: available}
	}
	return s, nil
}

// List returns solver descriptors in registration order
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		s := r.solvers[id]
		infos = append(infos, Info{ID: s.ID(), Name: s.Name(), Description: s.Description()})
	}
	return infos
}

// Options carries the solver-family configuration
type Options struct {
	StopTimeMinutes float64
	SpeedKPH        float64
	MaxDailyTime    float64
	WallClockSecs   int
}

// DefaultOptions returns the documented solver defaults
func DefaultOptions() Options {
	return Options{
		StopTimeMinutes: geo.DefaultCollectionTime,
		SpeedKPH:        geo.AverageSpeedKPH,
		MaxDailyTime:    geo.MaxDailyTime,
		WallClockSecs:   10,
	}
}

// NewDefaultRegistry registers the four well-known solvers
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(NewConstrainedSolver(opts))
	r.Register(NewGreedySolver())
	r.Register(NewNearestNeighborSolver())
	r.Register(NewBasicSolver())
	return r
}

// RouteDistance sums the haversine legs of a route, treating nil markers as
// the depot.
func RouteDistance(route []*models.Location, depot models.Coordinates) float64 {
	total := 0.0
	prev := depot
	for _, loc := range route {
		if loc == nil {
			total += geo.Distance(prev, depot)
			prev = depot
			continue
		}
		total += geo.Distance(prev, loc.GetCoords())
		prev = loc.GetCoords()
	}
	total += geo.Distance(prev, depot)
	return total
}

// fallbackByDepotDistance is the deterministic route used when optimization
// fails: a single route sorted by distance from depot.
func fallbackByDepotDistance(locations []*models.Location) [][]*models.Location {
	sorted := make([]*models.Location, len(locations))
	copy(sorted, locations)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DistanceFromDepot != sorted[j].DistanceFromDepot {
			return sorted[i].DistanceFromDepot < sorted[j].DistanceFromDepot
		}
		return sorted[i].ID < sorted[j].ID
	})

	route := make([]*models.Location, 0, len(sorted)+2)
	route = append(route, nil)
	route = append(route, sorted...)
	route = append(route, nil)
	return [][]*models.Location{route}
}
