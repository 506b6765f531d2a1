// Package pipeline drives the per-schedule routing loop:
// cluster -> assign -> solve -> register -> analyze.
package pipeline

import (
	"context"
	"log"
	"sort"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/ledger"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/scheduling"
	"wco-route-planner/internal/solver"
)

// forceAssignThreshold enables the scheduler's force-assign pass once this
// few locations remain.
const forceAssignThreshold = 5

// Config holds the pipeline dependencies and limits
type Config struct {
	Vehicles     []*models.Vehicle
	Solvers      *solver.Registry
	SolverID     string
	Constraints  models.RouteConstraints
	MaxDailyTime float64
	SpeedKPH     float64
}

// Pipeline runs schedules through the scheduler, solver and ledger
type Pipeline struct {
	vehicles     []*models.Vehicle
	solvers      *solver.Registry
	solverID     string
	constraints  models.RouteConstraints
	maxDailyTime float64
	speedKPH     float64
}

// New creates a pipeline. The solver id is validated at call time so that an
// unknown id surfaces as a configuration error, not mid-run.
func New(cfg Config) *Pipeline {
	if cfg.MaxDailyTime <= 0 {
		cfg.MaxDailyTime = geo.MaxDailyTime
	}
	if cfg.SpeedKPH <= 0 {
		cfg.SpeedKPH = geo.AverageSpeedKPH
	}
	return &Pipeline{
		vehicles:     cfg.Vehicles,
		solvers:      cfg.Solvers,
		solverID:     cfg.SolverID,
		constraints:  cfg.Constraints,
		maxDailyTime: cfg.MaxDailyTime,
		speedKPH:     cfg.SpeedKPH,
	}
}

// Process runs every schedule against the registry and returns the per-day
// analyses plus a coverage report per schedule. Data-plane problems
// (unassignable locations, solver failures) never abort the run; only an
// unknown solver id is fatal.
func (p *Pipeline) Process(ctx context.Context, schedules []*models.ScheduleEntry, locations *models.LocationRegistry) ([]models.RouteAnalysisResult, []models.ScheduleReport, error) {
	slv, err := p.solvers.Get(p.solverID)
	if err != nil {
		return nil, nil, err
	}

	p.initializeDepotDistances(locations)

	scheduler := scheduling.New(schedules, p.maxDailyTime, p.speedKPH)
	led := ledger.New(p.maxDailyTime, p.speedKPH)

	sorted := make([]*models.ScheduleEntry, len(schedules))
	copy(sorted, schedules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Frequency < sorted[j].Frequency })

	var results []models.RouteAnalysisResult
	var reports []models.ScheduleReport

	for _, entry := range sorted {
		if ctx.Err() != nil {
			return results, reports, ctx.Err()
		}
		result, report := p.processSchedule(ctx, entry, sorted, scheduler, slv, led, locations)
		results = append(results, result)
		reports = append(reports, report)
	}

	return results, reports, nil
}

// initializeDepotDistances populates Location.DistanceFromDepot once per run
func (p *Pipeline) initializeDepotDistances(locations *models.LocationRegistry) {
	if len(p.vehicles) == 0 {
		return
	}
	depot := p.vehicles[0].Depot
	for _, loc := range locations.All() {
		loc.DistanceFromDepot = geo.Distance(depot, loc.GetCoords())
	}
}

// processSchedule runs trip rounds for one schedule until every due location
// is registered or progress stalls. A schedule's day is shared with every
// other schedule whose frequency divides it, so the due set combines them.
func (p *Pipeline) processSchedule(ctx context.Context, entry *models.ScheduleEntry, schedules []*models.ScheduleEntry, scheduler *scheduling.CollectionScheduler, slv solver.Solver, led *ledger.TripLedger, locations *models.LocationRegistry) (models.RouteAnalysisResult, models.ScheduleReport) {
	day := entry.Frequency
	trip := 0

	for _, other := range schedules {
		if other.ID == entry.ID || other.Frequency == entry.Frequency {
			continue
		}
		if scheduling.CanSchedulesOverlap(entry.Frequency, other.Frequency) && day%other.Frequency == 0 {
			log.Printf("[PIPELINE] Day %d combines schedules %s and %s", day, entry.ID, other.ID)
		}
	}

	remaining := scheduling.CollectionsForDay(locations, schedules, day)

	log.Printf("[PIPELINE] Schedule %s (day %d): %d locations", entry.Name, day, len(remaining))

	for len(remaining) > 0 {
		if ctx.Err() != nil {
			log.Printf("[PIPELINE] Canceled before trip round %d of schedule %s", trip, entry.ID)
			break
		}

		forceAssign := len(remaining) <= forceAssignThreshold
		assignments := scheduler.OptimizeVehicleAssignments(p.vehicles, day, remaining, forceAssign, true)

		if assignedCount(assignments) == 0 {
			log.Printf("[PIPELINE] No feasible assignment for %d remaining locations, stopping schedule %s", len(remaining), entry.ID)
			break
		}

		routes := p.solveAssignments(ctx, slv, assignments)
		routes = p.lazyPatch(assignments, routes)

		collectionTime := scheduler.CollectionTimeFor(remaining)
		if entry.CollectionTimeMinutes > 0 {
			collectionTime = entry.CollectionTimeMinutes
		}

		registered := make(map[string]bool)
		for vIdx, route := range routes {
			if vIdx >= len(p.vehicles) {
				break
			}
			vehicle := p.vehicles[vIdx]
			for _, loc := range route {
				if loc == nil {
					continue
				}
				if led.RegisterCollection(vehicle, day, trip, loc, vehicle.Depot, collectionTime) {
					registered[loc.ID] = true
				}
			}
		}
		trip++

		if len(registered) == 0 {
			log.Printf("[PIPELINE] Trip round registered nothing, stopping schedule %s", entry.ID)
			break
		}

		next := remaining[:0]
		for _, loc := range remaining {
			if !registered[loc.ID] {
				next = append(next, loc)
			}
		}
		remaining = next

		// Legacy breach handling: the day's clock restarts, the day index
		// does not roll.
		if led.ExceedsDailyTime(day) {
			log.Printf("[PIPELINE] Day %d time budget breached, resetting day clock", day)
			led.ResetDay(day)
		}
	}

	report := p.buildReport(entry, remaining)
	result := BuildAnalysis(entry, led, locations, p.vehicles, day)
	return result, report
}

// solveAssignments runs the solver over the scheduler's output. The
// constrained solver sees the flattened assignment with all vehicles so it
// can rebalance; the other solvers run per vehicle to preserve the
// scheduler's allocation.
func (p *Pipeline) solveAssignments(ctx context.Context, slv solver.Solver, assignments [][]*models.Location) [][]*models.Location {
	if slv.ID() == "ortools" {
		flattened := make([]*models.Location, 0)
		for _, locs := range assignments {
			flattened = append(flattened, locs...)
		}
		if len(flattened) == 0 {
			return make([][]*models.Location, len(p.vehicles))
		}
		routes, err := slv.Solve(ctx, flattened, p.vehicles, p.constraints)
		if err != nil || routeStopCount(routes) == 0 {
			if err != nil {
				log.Printf("[ERROR] Solver %s failed: %v, using fallback", slv.ID(), err)
			}
			return p.fallbackRoutes(flattened)
		}
		return routes
	}

	routes := make([][]*models.Location, len(assignments))
	for vIdx, locs := range assignments {
		if len(locs) == 0 || vIdx >= len(p.vehicles) {
			routes[vIdx] = []*models.Location{}
			continue
		}
		vehicle := p.vehicles[vIdx]
		solved, err := slv.Solve(ctx, locs, []*models.Vehicle{vehicle}, p.constraints)
		if err != nil || len(solved) == 0 {
			if err != nil {
				log.Printf("[ERROR] Solver %s failed for vehicle %s: %v, using fallback", slv.ID(), vehicle.ID, err)
			}
			fallback := p.fallbackRoutes(locs)
			routes[vIdx] = fallback[0]
			continue
		}
		routes[vIdx] = solved[0]
	}
	return routes
}

// fallbackRoutes is the deterministic sort-by-depot-distance single route
// used when a solver fails outright.
func (p *Pipeline) fallbackRoutes(locations []*models.Location) [][]*models.Location {
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

// lazyPatch reinserts a single location the solver dropped. It runs only when
// exactly one location is missing; the location goes to the vehicle whose
// depot is nearest, at the position next to its closest existing stop,
// capacity permitting.
func (p *Pipeline) lazyPatch(assignments, routes [][]*models.Location) [][]*models.Location {
	inputIDs := make(map[string]*models.Location)
	for _, locs := range assignments {
		for _, loc := range locs {
			inputIDs[loc.ID] = loc
		}
	}
	outputIDs := make(map[string]bool)
	for _, route := range routes {
		for _, loc := range route {
			if loc != nil {
				outputIDs[loc.ID] = true
			}
		}
	}

	var missing []*models.Location
	for id, loc := range inputIDs {
		if !outputIDs[id] {
			missing = append(missing, loc)
		}
	}
	if len(missing) != 1 {
		return routes
	}
	loc := missing[0]
	log.Printf("[PIPELINE] Solver dropped %s, attempting lazy patch", loc.Name)

	bestVehicle := -1
	bestDist := 0.0
	for vIdx, vehicle := range p.vehicles {
		if vIdx >= len(routes) {
			break
		}
		d := geo.Distance(vehicle.Depot, loc.GetCoords())
		if bestVehicle < 0 || d < bestDist {
			bestVehicle = vIdx
			bestDist = d
		}
	}
	if bestVehicle < 0 {
		return routes
	}

	vehicle := p.vehicles[bestVehicle]
	route := routes[bestVehicle]
	load := 0.0
	for _, l := range route {
		if l != nil {
			load += l.WCOAmount
		}
	}
	if load+loc.WCOAmount > vehicle.Capacity {
		log.Printf("[PIPELINE] Lazy patch skipped: %s would overflow vehicle %s", loc.Name, vehicle.ID)
		return routes
	}

	insertPos := len(route)
	nearest := -1
	nearestDist := 0.0
	for i, l := range route {
		if l == nil {
			continue
		}
		d := geo.Distance(l.GetCoords(), loc.GetCoords())
		if nearest < 0 || d < nearestDist {
			nearest = i
			nearestDist = d
		}
	}
	if nearest >= 0 {
		insertPos = nearest + 1
	} else if len(route) == 0 {
		routes[bestVehicle] = []*models.Location{nil, loc, nil}
		log.Printf("[PIPELINE] Lazy patch: %s placed on empty route of vehicle %s", loc.Name, vehicle.ID)
		return routes
	}

	patched := make([]*models.Location, 0, len(route)+1)
	patched = append(patched, route[:insertPos]...)
	patched = append(patched, loc)
	patched = append(patched, route[insertPos:]...)
	routes[bestVehicle] = patched
	log.Printf("[PIPELINE] Lazy patch: %s inserted into route of vehicle %s", loc.Name, vehicle.ID)
	return routes
}

// buildReport classifies locations the schedule could not register
func (p *Pipeline) buildReport(entry *models.ScheduleEntry, remaining []*models.Location) models.ScheduleReport {
	report := models.ScheduleReport{ScheduleID: entry.ID}

	maxCapacity := 0.0
	for _, v := range p.vehicles {
		if v.Capacity > maxCapacity {
			maxCapacity = v.Capacity
		}
	}

	for _, loc := range remaining {
		reason := "time budget or distance constraints"
		if loc.WCOAmount > maxCapacity {
			reason = "exceeds every vehicle capacity"
		}
		report.MissingLocations = append(report.MissingLocations, models.MissingLocation{
			LocationID: loc.ID,
			Name:       loc.Name,
			WCOAmount:  loc.WCOAmount,
			Reason:     reason,
		})
		report.TotalMissingWCO += loc.WCOAmount
		log.Printf("[PIPELINE] Missing: %s (ID: %s, WCO: %.1fL) - %s", loc.Name, loc.ID, loc.WCOAmount, reason)
	}
	return report
}

// RunDirect bypasses scheduling and runs one solver pass over the whole
// registry as a single day-1 problem.
func (p *Pipeline) RunDirect(ctx context.Context, locations *models.LocationRegistry, collectionTimeMinutes float64) (models.RouteAnalysisResult, error) {
	slv, err := p.solvers.Get(p.solverID)
	if err != nil {
		return models.RouteAnalysisResult{}, err
	}
	if collectionTimeMinutes <= 0 {
		collectionTimeMinutes = geo.DefaultCollectionTime
	}

	p.initializeDepotDistances(locations)
	led := ledger.New(p.maxDailyTime, p.speedKPH)

	log.Printf("[PIPELINE] Running without schedule optimization over %d locations", locations.Len())

	all := locations.All()
	routes, err := slv.Solve(ctx, all, p.vehicles, p.constraints)
	if err != nil || routeStopCount(routes) == 0 {
		if err != nil {
			log.Printf("[ERROR] Solver %s failed: %v, using fallback", slv.ID(), err)
		}
		routes = p.fallbackRoutes(all)
	}

	const day = 1
	for vIdx, route := range routes {
		if vIdx >= len(p.vehicles) {
			break
		}
		vehicle := p.vehicles[vIdx]
		for _, loc := range route {
			if loc == nil {
				continue
			}
			led.RegisterCollection(vehicle, day, 0, loc, vehicle.Depot, collectionTimeMinutes)
		}
		if led.ExceedsDailyTime(day) {
			led.ResetDay(day)
		}
	}

	entry := &models.ScheduleEntry{ID: "direct", Name: "Unscheduled Run", Frequency: day}
	return BuildAnalysis(entry, led, locations, p.vehicles, day), nil
}

func assignedCount(assignments [][]*models.Location) int {
	count := 0
	for _, locs := range assignments {
		count += len(locs)
	}
	return count
}

func routeStopCount(routes [][]*models.Location) int {
	count := 0
	for _, route := range routes {
		for _, loc := range route {
			if loc != nil {
				count++
			}
		}
	}
	return count
}
