package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wco-route-planner/internal/config"
	"wco-route-planner/internal/data"
	"wco-route-planner/internal/database"
	"wco-route-planner/internal/models"
	"wco-route-planner/internal/pipeline"
	"wco-route-planner/internal/render"
	"wco-route-planner/internal/server"
	"wco-route-planner/internal/solver"
)

var (
	flagConfig            string
	flagSolver            string
	flagAPI               bool
	flagPort              int
	flagDisableScheduling bool
	flagOutput            string
	flagCacheDB           string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wco-route-planner",
		Short: "Plans waste cooking oil collection routes for a capacity-limited fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to JSON config file (built-in defaults when omitted)")
	rootCmd.Flags().StringVarP(&flagSolver, "solver", "s", "", "solver id: ortools, greedy, nearest or schedule (overrides config)")
	rootCmd.Flags().BoolVar(&flagAPI, "api", false, "run the HTTP API instead of a one-shot plan")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 8080, "HTTP API port")
	rootCmd.Flags().BoolVar(&flagDisableScheduling, "disable-scheduling", false, "skip schedule optimization and run one solver pass")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "output", "directory for analysis JSON files")
	rootCmd.Flags().StringVar(&flagCacheDB, "cache-db", "route_cache.db", "sqlite file for the road path cache")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagSolver != "" {
		cfg.Settings.Solver = flagSolver
	}

	env := config.LoadEnv()
	registry := solver.NewDefaultRegistry(solver.Options{
		SpeedKPH:     cfg.Settings.AverageSpeedKPH,
		MaxDailyTime: cfg.Settings.MaxDailyTime,
	})

	resolver, cleanup, err := buildResolver(env)
	if err != nil {
		log.Printf("[ERROR] Road path cache unavailable, rendering straight paths: %v", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if flagAPI {
		return runServer(ctx, cfg, registry, resolver)
	}
	return runPlan(ctx, cfg, registry, resolver)
}

// buildResolver sets up the ORS path resolver with its sqlite cache. A broken
// cache or missing key degrades rendering, never the planner.
func buildResolver(env config.Env) (render.PathResolver, func(), error) {
	db, err := database.New(flagCacheDB)
	if err != nil {
		return render.NewORSResolver(env.ORSAPIKey, env.ORSBaseURL, nil), nil, err
	}
	resolver := render.NewORSResolver(env.ORSAPIKey, env.ORSBaseURL, db.RoutePathCache())
	return resolver, func() { db.Close() }, nil
}

func runServer(ctx context.Context, cfg *config.Config, registry *solver.Registry, resolver render.PathResolver) error {
	srv, err := server.New(server.Config{
		Addr:     fmt.Sprintf("127.0.0.1:%d", flagPort),
		Defaults: cfg,
		Solvers:  registry,
		Resolver: resolver,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if _, err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runPlan(ctx context.Context, cfg *config.Config, registry *solver.Registry, resolver render.PathResolver) error {
	schedules := cfg.ScheduleEntries()
	baseDir := ""
	if flagConfig != "" {
		baseDir = filepath.Dir(flagConfig)
	}
	locations, err := data.LoadScheduleFiles(baseDir, schedules)
	if err != nil {
		return err
	}
	if locations.Len() == 0 {
		return fmt.Errorf("no locations loaded; check schedule file paths in the config")
	}

	p := pipeline.New(pipeline.Config{
		Vehicles:     cfg.Vehicles(),
		Solvers:      registry,
		SolverID:     cfg.Settings.Solver,
		Constraints:  cfg.Constraints(),
		MaxDailyTime: cfg.Settings.MaxDailyTime,
		SpeedKPH:     cfg.Settings.AverageSpeedKPH,
	})

	if flagDisableScheduling {
		result, err := p.RunDirect(ctx, locations, 0)
		if err != nil {
			return err
		}
		render.AttachRoadPaths(ctx, resolver, &result)
		return writeResults(cfg, []models.RouteAnalysisResult{result}, nil)
	}

	results, reports, err := p.Process(ctx, schedules, locations)
	if err != nil {
		return err
	}
	for i := range results {
		render.AttachRoadPaths(ctx, resolver, &results[i])
	}
	return writeResults(cfg, results, reports)
}

// writeResults emits one analysis_dayN.json per result plus a run summary,
// grouped by base schedule id.
func writeResults(cfg *config.Config, results []models.RouteAnalysisResult, reports []models.ScheduleReport) error {
	for _, result := range results {
		dir := filepath.Join(flagOutput, result.BaseScheduleID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("analysis_day%d.json", result.CollectionDay))
		if err := writeJSONFile(path, result); err != nil {
			return err
		}
		log.Printf("[OUTPUT] Wrote %s: %d trips, %.1fL collected, %.2fkm",
			path, result.TotalTrips, result.TotalCollected, result.TotalDistance)
	}

	summary := struct {
		Solver    string                       `json:"solver"`
		Generated time.Time                    `json:"generated"`
		Results   []models.RouteAnalysisResult `json:"results"`
		Reports   []models.ScheduleReport      `json:"reports,omitempty"`
	}{
		Solver:    cfg.Settings.Solver,
		Generated: time.Now(),
		Results:   results,
		Reports:   reports,
	}
	if err := os.MkdirAll(flagOutput, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return writeJSONFile(filepath.Join(flagOutput, "schedule_summary.json"), summary)
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
