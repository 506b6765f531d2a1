package solver

import (
	"context"
	"log"
	"math"
	"time"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// Time dimension parameters mirroring the constraint model: 60 minutes of
// slack per route and a horizon of twice the working day.
const (
	timeSlackMinutes  = 60
	demandScale       = 10
	penaltyWeight     = 0.3
	defaultWallSecs   = 10
	improvementRounds = 200000
)

// ConstrainedSolver builds a vehicle routing model with distance arc costs, a
// time dimension (service + travel, bounded by the working day), a capacity
// dimension on scaled demands, and forbidden transitions for one-way roads.
// It constructs an initial solution with cheapest-arc extension and improves
// it with guided local search until the wall clock runs out. This is the only
// solver that honors one-way constraints.
type ConstrainedSolver struct {
	opts Options
}

// NewConstrainedSolver creates the constrained solver with the given options
func NewConstrainedSolver(opts Options) *ConstrainedSolver {
	if opts.StopTimeMinutes <= 0 {
		opts.StopTimeMinutes = geo.DefaultCollectionTime
	}
	if opts.SpeedKPH <= 0 {
		opts.SpeedKPH = geo.AverageSpeedKPH
	}
	if opts.MaxDailyTime <= 0 {
		opts.MaxDailyTime = geo.MaxDailyTime
	}
	if opts.WallClockSecs <= 0 {
		opts.WallClockSecs = defaultWallSecs
	}
	return &ConstrainedSolver{opts: opts}
}

func (s *ConstrainedSolver) ID() string   { return "ortools" }
func (s *ConstrainedSolver) Name() string { return "Constrained Optimization Solver" }
func (s *ConstrainedSolver) Description() string {
	return "Constraint-based solver with capacity and time dimensions and guided local search. Best for complex routing problems."
}

// vrpModel is the integer-cost routing model the search operates on.
// Node 0 is the depot; nodes 1..n map to locations[node-1].
type vrpModel struct {
	locations  []*models.Location
	vehicles   []*models.Vehicle
	dist       [][]int // km, rounded
	travelTime [][]int // minutes, service time of the from-node included
	demand     []int   // wco * demandScale
	capacity   []int   // vehicle capacity * demandScale
	forbidden  map[[2]int]bool
	maxCumul   int // per-node time window upper bound
	horizon    int // route end bound (2x working day)
}

func (s *ConstrainedSolver) Solve(ctx context.Context, locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) ([][]*models.Location, error) {
	if len(locations) == 0 || len(vehicles) == 0 {
		routes := make([][]*models.Location, len(vehicles))
		for i := range routes {
			routes[i] = []*models.Location{}
		}
		return routes, nil
	}
	if len(locations) == 1 {
		return [][]*models.Location{{nil, locations[0], nil}}, nil
	}

	model := s.buildModel(locations, vehicles, constraints)

	routes, ok := s.constructInitial(model)
	if !ok {
		log.Printf("[SOLVER] No feasible construction for %d locations, using depot-distance fallback", len(locations))
		return fallbackByDepotDistance(locations), nil
	}

	deadline := time.Now().Add(time.Duration(s.opts.WallClockSecs) * time.Second)
	routes = s.guidedLocalSearch(ctx, model, routes, deadline)

	return s.extractRoutes(model, routes), nil
}

func (s *ConstrainedSolver) buildModel(locations []*models.Location, vehicles []*models.Vehicle, constraints models.RouteConstraints) *vrpModel {
	n := len(locations) + 1
	depot := vehicles[0].Depot

	coords := make([]models.Coordinates, n)
	coords[0] = depot
	for i, loc := range locations {
		coords[i+1] = loc.GetCoords()
	}

	model := &vrpModel{
		locations:  locations,
		vehicles:   vehicles,
		dist:       make([][]int, n),
		travelTime: make([][]int, n),
		demand:     make([]int, n),
		capacity:   make([]int, len(vehicles)),
		forbidden:  make(map[[2]int]bool),
		maxCumul:   int(s.opts.MaxDailyTime),
		horizon:    int(s.opts.MaxDailyTime) * 2,
	}

	for i := 0; i < n; i++ {
		model.dist[i] = make([]int, n)
		model.travelTime[i] = make([]int, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			km := geo.Distance(coords[i], coords[j])
			model.dist[i][j] = int(math.Round(km))

			service := 0
			if i != 0 {
				service = int(s.opts.StopTimeMinutes)
			}
			model.travelTime[i][j] = int(math.Round(geo.EstimateTravelTime(km, s.opts.SpeedKPH))) + service
		}
	}

	for i, loc := range locations {
		model.demand[i+1] = int(math.Round(loc.WCOAmount * demandScale))
	}
	for v, vehicle := range vehicles {
		model.capacity[v] = int(math.Round(vehicle.Capacity * demandScale))
	}

	// One-way road (from, to): forbid traveling to -> from
	for _, road := range constraints.OneWayRoads {
		fromIdx, toIdx := -1, -1
		for i, loc := range locations {
			if loc.Lat == road.From.Lat && loc.Lng == road.From.Lng {
				fromIdx = i + 1
			}
			if loc.Lat == road.To.Lat && loc.Lng == road.To.Lng {
				toIdx = i + 1
			}
		}
		if fromIdx < 0 || toIdx < 0 {
			log.Printf("[SOLVER] One-way road endpoints not in current input, skipping constraint")
			continue
		}
		model.forbidden[[2]int{toIdx, fromIdx}] = true
	}

	return model
}

// constructInitial is a cheapest-arc construction: each vehicle extends its
// route with the cheapest feasible arc until nothing fits, then the next
// vehicle starts. Returns false when some location cannot be placed.
func (s *ConstrainedSolver) constructInitial(model *vrpModel) ([][]int, bool) {
	n := len(model.locations) + 1
	unrouted := make(map[int]bool, n-1)
	for i := 1; i < n; i++ {
		unrouted[i] = true
	}

	routes := make([][]int, len(model.vehicles))
	for v := range model.vehicles {
		route := []int{}
		load := 0
		cumul := 0
		current := 0

		for {
			best := -1
			bestCost := 0
			for node := 1; node < n; node++ {
				if !unrouted[node] {
					continue
				}
				if model.forbidden[[2]int{current, node}] {
					continue
				}
				if load+model.demand[node] > model.capacity[v] {
					continue
				}
				arrival := cumul + model.travelTime[current][node]
				if arrival > model.maxCumul {
					continue
				}
				if arrival+model.travelTime[node][0] > model.horizon+timeSlackMinutes {
					continue
				}
				cost := model.dist[current][node]
				if best < 0 || cost < bestCost {
					best = node
					bestCost = cost
				}
			}
			if best < 0 {
				break
			}
			route = append(route, best)
			load += model.demand[best]
			cumul += model.travelTime[current][best]
			current = best
			delete(unrouted, best)
		}
		routes[v] = route
	}

	return routes, len(unrouted) == 0
}

// guidedLocalSearch improves the construction with 2-opt and relocate moves
// over a penalty-augmented cost, periodically penalizing the highest-utility
// arc of the current local optimum. The best true-cost solution seen is kept.
func (s *ConstrainedSolver) guidedLocalSearch(ctx context.Context, model *vrpModel, routes [][]int, deadline time.Time) [][]int {
	penalties := make(map[[2]int]int)

	best := copyRoutes(routes)
	bestCost := s.trueCost(model, best)
	current := copyRoutes(routes)

	for round := 0; round < improvementRounds; round++ {
		if time.Now().After(deadline) || ctx.Err() != nil {
			break
		}

		improved := s.localStep(model, current, penalties)
		if !improved {
			// Local optimum: penalize the arc with the highest utility
			arc, found := s.maxUtilityArc(model, current, penalties)
			if !found {
				break
			}
			penalties[arc]++
		}

		if cost := s.trueCost(model, current); cost < bestCost {
			bestCost = cost
			best = copyRoutes(current)
		}
	}

	return best
}

// localStep applies the first improving 2-opt or relocate move found.
func (s *ConstrainedSolver) localStep(model *vrpModel, routes [][]int, penalties map[[2]int]int) bool {
	// Intra-route 2-opt
	for v, route := range routes {
		for i := 0; i < len(route)-1; i++ {
			for j := i + 1; j < len(route); j++ {
				candidate := twoOptSwap(route, i, j)
				if !s.feasible(model, candidate, v) {
					continue
				}
				if s.augmentedRouteCost(model, candidate, penalties) < s.augmentedRouteCost(model, route, penalties) {
					routes[v] = candidate
					return true
				}
			}
		}
	}

	// Inter-route relocate
	for from, fromRoute := range routes {
		for i := range fromRoute {
			node := fromRoute[i]
			for to := range routes {
				if to == from {
					continue
				}
				for pos := 0; pos <= len(routes[to]); pos++ {
					newFrom := removeAt(fromRoute, i)
					newTo := insertAt(routes[to], pos, node)
					if !s.feasible(model, newFrom, from) || !s.feasible(model, newTo, to) {
						continue
					}
					oldCost := s.augmentedRouteCost(model, fromRoute, penalties) + s.augmentedRouteCost(model, routes[to], penalties)
					newCost := s.augmentedRouteCost(model, newFrom, penalties) + s.augmentedRouteCost(model, newTo, penalties)
					if newCost < oldCost {
						routes[from] = newFrom
						routes[to] = newTo
						return true
					}
				}
			}
		}
	}

	return false
}

func (s *ConstrainedSolver) maxUtilityArc(model *vrpModel, routes [][]int, penalties map[[2]int]int) ([2]int, bool) {
	bestUtility := -1.0
	var bestArc [2]int
	found := false

	for _, route := range routes {
		prev := 0
		for _, node := range route {
			arc := [2]int{prev, node}
			utility := float64(model.dist[prev][node]) / float64(1+penalties[arc])
			if utility > bestUtility {
				bestUtility = utility
				bestArc = arc
				found = true
			}
			prev = node
		}
	}
	return bestArc, found
}

// feasible checks capacity, the per-node time window, forbidden transitions
// and the route horizon for a single route.
func (s *ConstrainedSolver) feasible(model *vrpModel, route []int, vehicleIdx int) bool {
	load := 0
	cumul := 0
	prev := 0

	for _, node := range route {
		if model.forbidden[[2]int{prev, node}] {
			return false
		}
		load += model.demand[node]
		if load > model.capacity[vehicleIdx] {
			return false
		}
		cumul += model.travelTime[prev][node]
		if cumul > model.maxCumul {
			return false
		}
		prev = node
	}

	cumul += model.travelTime[prev][0]
	return cumul <= model.horizon+timeSlackMinutes
}

func (s *ConstrainedSolver) trueCost(model *vrpModel, routes [][]int) int {
	total := 0
	for _, route := range routes {
		prev := 0
		for _, node := range route {
			total += model.dist[prev][node]
			prev = node
		}
		if len(route) > 0 {
			total += model.dist[prev][0]
		}
	}
	return total
}

func (s *ConstrainedSolver) augmentedRouteCost(model *vrpModel, route []int, penalties map[[2]int]int) float64 {
	cost := 0.0
	prev := 0
	for _, node := range route {
		arc := [2]int{prev, node}
		cost += float64(model.dist[prev][node]) + penaltyWeight*float64(penalties[arc])
		prev = node
	}
	if len(route) > 0 {
		cost += float64(model.dist[prev][0])
	}
	return cost
}

func (s *ConstrainedSolver) extractRoutes(model *vrpModel, routes [][]int) [][]*models.Location {
	result := make([][]*models.Location, 0, len(routes))
	for v, route := range routes {
		if len(route) == 0 {
			log.Printf("[SOLVER] Vehicle %s is not used", model.vehicles[v].ID)
			result = append(result, []*models.Location{})
			continue
		}
		converted := make([]*models.Location, 0, len(route)+2)
		converted = append(converted, nil)
		for _, node := range route {
			converted = append(converted, model.locations[node-1])
		}
		converted = append(converted, nil)
		result = append(result, converted)
	}
	return result
}

func twoOptSwap(route []int, i, j int) []int {
	result := make([]int, len(route))
	copy(result, route[:i])
	for k := i; k <= j; k++ {
		result[k] = route[j-(k-i)]
	}
	copy(result[j+1:], route[j+1:])
	return result
}

func removeAt(route []int, i int) []int {
	result := make([]int, 0, len(route)-1)
	result = append(result, route[:i]...)
	result = append(result, route[i+1:]...)
	return result
}

func insertAt(route []int, pos, node int) []int {
	result := make([]int, 0, len(route)+1)
	result = append(result, route[:pos]...)
	result = append(result, node)
	result = append(result, route[pos:]...)
	return result
}

func copyRoutes(routes [][]int) [][]int {
	result := make([][]int, len(routes))
	for i, route := range routes {
		result[i] = make([]int, len(route))
		copy(result[i], route)
	}
	return result
}
