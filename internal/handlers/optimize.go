package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"wco-route-planner/internal/config"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/pipeline"
	"wco-route-planner/internal/render"
	"wco-route-planner/internal/solver"
)

// OptimizeRequest is the POST /api/optimize body
type OptimizeRequest struct {
	Config    *config.Config     `json:"config"`
	Locations []*models.Location `json:"locations"`
}

// HandleOptimize runs the full pipeline over the posted locations and returns
// the per-day analyses in schedule order.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body: "+err.Error())
		return
	}

	cfg := req.Config
	if cfg == nil {
		cfg = h.Defaults
	}
	if err := config.Validate(cfg); err != nil {
		h.handleValidationError(w, err.Error())
		return
	}
	if len(req.Locations) == 0 {
		h.handleValidationError(w, "no locations provided")
		return
	}

	registry := models.NewLocationRegistry()
	for i, loc := range req.Locations {
		if loc.ID == "" {
			loc.ID = fmt.Sprintf("loc_%04d", i)
		}
		if loc.WCOAmount < 0 {
			h.handleValidationError(w, fmt.Sprintf("location %s has negative wco_amount", loc.ID))
			return
		}
		registry.Add(loc)
	}

	if _, err := h.Solvers.Get(cfg.Settings.Solver); err != nil {
		if _, ok := err.(*solver.ErrUnknownSolver); ok {
			h.handleValidationError(w, err.Error())
			return
		}
		h.handleInternalError(w, err)
		return
	}

	p := pipeline.New(pipeline.Config{
		Vehicles:     cfg.Vehicles(),
		Solvers:      h.Solvers,
		SolverID:     cfg.Settings.Solver,
		Constraints:  cfg.Constraints(),
		MaxDailyTime: cfg.Settings.MaxDailyTime,
		SpeedKPH:     cfg.Settings.AverageSpeedKPH,
	})

	log.Printf("[API] Optimize request: %d locations, %d schedules, solver=%s",
		registry.Len(), len(cfg.Schedules), cfg.Settings.Solver)

	results, reports, err := p.Process(r.Context(), cfg.ScheduleEntries(), registry)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	if h.Resolver != nil {
		for i := range results {
			render.AttachRoadPaths(r.Context(), h.Resolver, &results[i])
		}
	}

	for _, report := range reports {
		if len(report.MissingLocations) > 0 {
			log.Printf("[API] Schedule %s left %d locations unrouted (%.1fL)",
				report.ScheduleID, len(report.MissingLocations), report.TotalMissingWCO)
		}
	}

	h.writeJSON(w, http.StatusOK, results)
}
