// Package config loads and validates planner configuration from JSON files
// and the environment.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// Settings holds the fleet and solver parameters
type Settings struct {
	// DepotLocation is [lat, lng]
	DepotLocation   []float64         `mapstructure:"depot_location" json:"depot_location" validate:"len=2"`
	Vehicles        []VehicleConfig   `mapstructure:"vehicles" json:"vehicles" validate:"min=1,dive"`
	Constraints     ConstraintsConfig `mapstructure:"constraints" json:"constraints"`
	Solver          string            `mapstructure:"solver" json:"solver" validate:"required"`
	MaxDailyTime    float64           `mapstructure:"max_daily_time" json:"max_daily_time" validate:"gt=0"`
	AverageSpeedKPH float64           `mapstructure:"average_speed_kph" json:"average_speed_kph" validate:"gt=0"`
	// MaxTripsPerDay is parsed for forward compatibility but not enforced
	MaxTripsPerDay int `mapstructure:"max_trips_per_day" json:"max_trips_per_day,omitempty" validate:"gte=0"`
}

// VehicleConfig describes one vehicle in the fleet
type VehicleConfig struct {
	ID       string  `mapstructure:"id" json:"id" validate:"required"`
	Capacity float64 `mapstructure:"capacity" json:"capacity" validate:"gt=0"`
}

// ConstraintsConfig holds directional road constraints as coordinate pairs,
// each [[from_lat, from_lng], [to_lat, to_lng]]
type ConstraintsConfig struct {
	OneWayRoads [][][]float64 `mapstructure:"one_way_roads" json:"one_way_roads"`
}

// ScheduleConfig describes one disposal schedule
type ScheduleConfig struct {
	ID                    string  `mapstructure:"id" json:"id" validate:"required"`
	Name                  string  `mapstructure:"name" json:"name" validate:"required"`
	Frequency             int     `mapstructure:"frequency" json:"frequency" validate:"gt=0"`
	File                  string  `mapstructure:"file" json:"file"`
	CollectionTimeMinutes float64 `mapstructure:"collection_time_minutes" json:"collection_time_minutes,omitempty" validate:"gte=0"`
	Description           string  `mapstructure:"description" json:"description,omitempty"`
	Color                 string  `mapstructure:"color" json:"color,omitempty"`
}

// Config is the full planner configuration
type Config struct {
	Settings  Settings         `mapstructure:"settings" json:"settings" validate:"required"`
	Schedules []ScheduleConfig `mapstructure:"schedules" json:"schedules" validate:"min=1,dive"`
}

// Env holds environment-sourced settings for external services
type Env struct {
	ORSAPIKey  string
	ORSBaseURL string
}

// ErrInvalidConfig wraps validation failures with the offending field
type ErrInvalidConfig struct {
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

var validate = validator.New()

// Default returns the built-in configuration used when no file is given
func Default() *Config {
	return &Config{
		Settings: Settings{
			DepotLocation: []float64{14.5995, 120.9842},
			Vehicles: []VehicleConfig{
				{ID: "vehicle_1", Capacity: 1500},
				{ID: "vehicle_2", Capacity: 1500},
			},
			Solver:          "ortools",
			MaxDailyTime:    geo.MaxDailyTime,
			AverageSpeedKPH: geo.AverageSpeedKPH,
		},
		Schedules: []ScheduleConfig{
			{ID: "weekly", Name: "Weekly Collection", Frequency: 7, CollectionTimeMinutes: geo.DefaultCollectionTime},
		},
	}
}

// Load reads a JSON config file, applies defaults for absent keys and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("settings.solver", "ortools")
	v.SetDefault("settings.max_daily_time", geo.MaxDailyTime)
	v.SetDefault("settings.average_speed_kph", geo.AverageSpeedKPH)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	log.Printf("[CONFIG] Loaded %s: %d vehicles, %d schedules, solver=%s",
		path, len(cfg.Settings.Vehicles), len(cfg.Schedules), cfg.Settings.Solver)
	return &cfg, nil
}

// Validate checks structural constraints on a config, wherever it came from
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return &ErrInvalidConfig{Reason: err.Error()}
	}
	for _, road := range cfg.Settings.Constraints.OneWayRoads {
		if len(road) != 2 || len(road[0]) != 2 || len(road[1]) != 2 {
			return &ErrInvalidConfig{Reason: "one_way_roads entries must be [[from_lat,from_lng],[to_lat,to_lng]]"}
		}
	}
	return nil
}

// LoadEnv reads external-service settings from .env and the process
// environment. A missing .env file is not an error.
func LoadEnv() Env {
	if err := godotenv.Load(); err == nil {
		log.Printf("[CONFIG] Loaded .env file")
	}
	return Env{
		ORSAPIKey:  os.Getenv("ORS_API_KEY"),
		ORSBaseURL: os.Getenv("ORS_BASE_URL"),
	}
}

// Depot returns the configured depot coordinates
func (c *Config) Depot() models.Coordinates {
	return models.Coordinates{Lat: c.Settings.DepotLocation[0], Lng: c.Settings.DepotLocation[1]}
}

// Vehicles converts the configured fleet to model vehicles sharing the depot
func (c *Config) Vehicles() []*models.Vehicle {
	depot := c.Depot()
	vehicles := make([]*models.Vehicle, 0, len(c.Settings.Vehicles))
	for _, vc := range c.Settings.Vehicles {
		vehicles = append(vehicles, &models.Vehicle{ID: vc.ID, Capacity: vc.Capacity, Depot: depot})
	}
	return vehicles
}

// Constraints converts the configured one-way roads to model constraints
func (c *Config) Constraints() models.RouteConstraints {
	constraints := models.RouteConstraints{}
	for _, road := range c.Settings.Constraints.OneWayRoads {
		constraints.OneWayRoads = append(constraints.OneWayRoads, models.OneWayRoad{
			From: models.Coordinates{Lat: road[0][0], Lng: road[0][1]},
			To:   models.Coordinates{Lat: road[1][0], Lng: road[1][1]},
		})
	}
	return constraints
}

// ScheduleEntries converts the configured schedules to model entries
func (c *Config) ScheduleEntries() []*models.ScheduleEntry {
	entries := make([]*models.ScheduleEntry, 0, len(c.Schedules))
	for _, sc := range c.Schedules {
		entries = append(entries, &models.ScheduleEntry{
			ID:                    sc.ID,
			Name:                  sc.Name,
			Frequency:             sc.Frequency,
			File:                  sc.File,
			CollectionTimeMinutes: sc.CollectionTimeMinutes,
			Description:           sc.Description,
			Color:                 sc.Color,
		})
	}
	return entries
}
