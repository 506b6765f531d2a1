package models

import "time"

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location represents a WCO generator that needs periodic collection
type Location struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	WCOAmount         float64 `json:"wco_amount"`
	DisposalSchedule  int     `json:"disposal_schedule"`
	DistanceFromDepot float64 `json:"distance_from_depot"`
}

// GetCoords returns the coordinates of the location
func (l *Location) GetCoords() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// Vehicle represents a capacity-limited collection vehicle.
// Vehicles carry no runtime state; load and time accounting live in the ledger.
type Vehicle struct {
	ID       string      `json:"id"`
	Capacity float64     `json:"capacity"`
	Depot    Coordinates `json:"depot_location"`
}

// RemainingCapacity returns the capacity left given the current load
func (v *Vehicle) RemainingCapacity(currentLoad float64) float64 {
	return v.Capacity - currentLoad
}

// NeedsDepotReturn reports whether collecting the next amount would overflow the vehicle
func (v *Vehicle) NeedsDepotReturn(currentLoad, nextAmount float64) bool {
	return nextAmount > v.RemainingCapacity(currentLoad)
}

// ScheduleEntry describes a disposal schedule. Frequency is the period in days
// and doubles as the day index at which the schedule materializes.
type ScheduleEntry struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Frequency             int     `json:"frequency"`
	File                  string  `json:"file"`
	CollectionTimeMinutes float64 `json:"collection_time_minutes,omitempty"`
	Description           string  `json:"description,omitempty"`
	Color                 string  `json:"color,omitempty"`
}

// OneWayRoad forbids travel from To back to From
type OneWayRoad struct {
	From Coordinates `json:"from"`
	To   Coordinates `json:"to"`
}

// RouteConstraints holds directional road constraints
type RouteConstraints struct {
	OneWayRoads []OneWayRoad `json:"one_way_roads"`
}

// CollectionStop is a single registered stop in a trip
type CollectionStop struct {
	LocationID        string      `json:"location_id"`
	Name              string      `json:"name"`
	Coordinates       Coordinates `json:"coordinates"`
	AmountCollected   float64     `json:"amount_collected"`
	CumulativeLoad    float64     `json:"cumulative_load"`
	DistanceFromPrev  float64     `json:"distance_from_prev"`
	TripNumber        int         `json:"trip_number"`
	CollectionDay     int         `json:"collection_day"`
	CollectionTimeSec float64     `json:"collection_time_sec"`
	TravelTimeSec     float64     `json:"travel_time_sec"`
}

// CollectionData holds all collections for one (vehicle, day, trip) key
type CollectionData struct {
	VehicleID         string              `json:"vehicle_id"`
	Day               int                 `json:"day"`
	TripNumber        int                 `json:"trip_number"`
	VisitedIDs        map[string]struct{} `json:"-"`
	Stops             []CollectionStop    `json:"stops"`
	TotalCollected    float64             `json:"total_collected"`
	TotalDistance     float64             `json:"total_distance"`
	Timestamp         time.Time           `json:"timestamp"`
	SpeedKPH          float64             `json:"speed_kph"`
	CollectionTimeMin float64             `json:"collection_time_min"`
}

// VehicleRoute is the concatenation of a vehicle's stops across all trips of one day
type VehicleRoute struct {
	VehicleID      string           `json:"vehicle_id"`
	Stops          []CollectionStop `json:"stops"`
	TotalDistance  float64          `json:"total_distance"`
	TotalCollected float64          `json:"total_collected"`
}

// StopInfo describes a single stop in the analysis output. The first and last
// stops of every trip are synthetic depot stops.
type StopInfo struct {
	Name              string      `json:"name"`
	LocationID        string      `json:"location_id"`
	Coordinates       Coordinates `json:"coordinates"`
	WCOAmount         float64     `json:"wco_amount"`
	TripNumber        int         `json:"trip_number"`
	CumulativeLoad    float64     `json:"cumulative_load"`
	RemainingCapacity float64     `json:"remaining_capacity"`
	DistanceFromDepot float64     `json:"distance_from_depot"`
	DistanceFromPrev  float64     `json:"distance_from_prev"`
	VehicleCapacity   float64     `json:"vehicle_capacity"`
	SequenceNumber    int         `json:"sequence_number"`
	CollectionDay     int         `json:"collection_day"`
}

// RoutePathInfo is a road polyline between two consecutive stops,
// produced by the rendering collaborator
type RoutePathInfo struct {
	FromCoords Coordinates `json:"from_coords"`
	ToCoords   Coordinates `json:"to_coords"`
	Path       [][]float64 `json:"path"`
	TripNumber int         `json:"trip_number"`
}

// VehicleRouteInfo describes one vehicle's complete route for a day
type VehicleRouteInfo struct {
	VehicleID      string          `json:"vehicle_id"`
	Capacity       float64         `json:"capacity"`
	TotalStops     int             `json:"total_stops"`
	TotalTrips     int             `json:"total_trips"`
	TotalDistance  float64         `json:"total_distance"`
	TotalCollected float64         `json:"total_collected"`
	Efficiency     float64         `json:"efficiency"`
	CollectionDay  int             `json:"collection_day"`
	Stops          []StopInfo      `json:"stops"`
	RoadPaths      []RoutePathInfo `json:"road_paths,omitempty"`
}

// TripAnalysisResult groups vehicle routes by trip number within a day
type TripAnalysisResult struct {
	TripNumber     int                `json:"trip_number"`
	VehicleRoutes  []VehicleRouteInfo `json:"vehicle_routes"`
	TotalDistance  float64            `json:"total_distance"`
	TotalCollected float64            `json:"total_collected"`
}

// RouteAnalysisResult is the complete analysis for one schedule day
type RouteAnalysisResult struct {
	ScheduleID     string               `json:"schedule_id"`
	BaseScheduleID string               `json:"base_schedule_id"`
	ScheduleName   string               `json:"schedule_name"`
	DateGenerated  time.Time            `json:"date_generated"`
	TotalLocations int                  `json:"total_locations"`
	TotalVehicles  int                  `json:"total_vehicles"`
	TotalDistance  float64              `json:"total_distance"`
	TotalCollected float64              `json:"total_collected"`
	TotalTrips     int                  `json:"total_trips"`
	TotalStops     int                  `json:"total_stops"`
	CollectionDay  int                  `json:"collection_day"`
	Trips          []TripAnalysisResult `json:"trips"`
}

// MissingLocation describes a location the pipeline could not register
type MissingLocation struct {
	LocationID string  `json:"location_id"`
	Name       string  `json:"name"`
	WCOAmount  float64 `json:"wco_amount"`
	Reason     string  `json:"reason"`
}

// ScheduleReport summarizes coverage for one schedule after the pipeline runs
type ScheduleReport struct {
	ScheduleID       string            `json:"schedule_id"`
	MissingLocations []MissingLocation `json:"missing_locations,omitempty"`
	TotalMissingWCO  float64           `json:"total_missing_wco"`
}

// RoutePathCacheEntry is a cached road path lookup between two points
type RoutePathCacheEntry struct {
	Origin         Coordinates `json:"origin"`
	Destination    Coordinates `json:"destination"`
	Path           [][]float64 `json:"path"`
	DistanceMeters float64     `json:"distance_meters"`
}
