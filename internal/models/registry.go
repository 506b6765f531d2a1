package models

import "math"

// CoordinateTolerance is the default epsilon for coordinate lookups
const CoordinateTolerance = 1e-6

// LocationRegistry is an indexed container for locations. It preserves
// insertion order and indexes by id (unique), name (one-to-many) and
// coordinates (one-to-many with tolerance).
type LocationRegistry struct {
	locations []*Location
	byID      map[string]*Location
	byName    map[string][]*Location
	byCoords  map[Coordinates][]*Location
}

// NewLocationRegistry creates a registry, optionally pre-populated
func NewLocationRegistry(locations ...*Location) *LocationRegistry {
	r := &LocationRegistry{
		byID:     make(map[string]*Location),
		byName:   make(map[string][]*Location),
		byCoords: make(map[Coordinates][]*Location),
	}
	for _, loc := range locations {
		r.Add(loc)
	}
	return r
}

// Add inserts a location into all indexes. Adding an id that is already
// present is a no-op.
func (r *LocationRegistry) Add(loc *Location) {
	if _, exists := r.byID[loc.ID]; exists {
		return
	}
	r.locations = append(r.locations, loc)
	r.byID[loc.ID] = loc
	r.byName[loc.Name] = append(r.byName[loc.Name], loc)
	coords := loc.GetCoords()
	r.byCoords[coords] = append(r.byCoords[coords], loc)
}

// Remove deletes a location from all indexes. Unknown ids are ignored.
func (r *LocationRegistry) Remove(loc *Location) {
	stored, exists := r.byID[loc.ID]
	if !exists {
		return
	}
	delete(r.byID, loc.ID)

	for i, l := range r.locations {
		if l.ID == loc.ID {
			r.locations = append(r.locations[:i], r.locations[i+1:]...)
			break
		}
	}
	r.byName[stored.Name] = removeLocation(r.byName[stored.Name], stored.ID)
	if len(r.byName[stored.Name]) == 0 {
		delete(r.byName, stored.Name)
	}
	coords := stored.GetCoords()
	r.byCoords[coords] = removeLocation(r.byCoords[coords], stored.ID)
	if len(r.byCoords[coords]) == 0 {
		delete(r.byCoords, coords)
	}
}

func removeLocation(locs []*Location, id string) []*Location {
	for i, l := range locs {
		if l.ID == id {
			return append(locs[:i], locs[i+1:]...)
		}
	}
	return locs
}

// GetByID returns the location with the given id, or nil
func (r *LocationRegistry) GetByID(id string) *Location {
	return r.byID[id]
}

// GetByName returns all locations sharing the given name
func (r *LocationRegistry) GetByName(name string) []*Location {
	locs := r.byName[name]
	result := make([]*Location, len(locs))
	copy(result, locs)
	return result
}

// GetByCoordinates returns all locations within tolerance of the given point.
// Exact matches are served from the coordinate index first.
func (r *LocationRegistry) GetByCoordinates(coords Coordinates, tolerance float64) []*Location {
	if exact, ok := r.byCoords[coords]; ok {
		result := make([]*Location, len(exact))
		copy(result, exact)
		return result
	}

	var matches []*Location
	for stored, locs := range r.byCoords {
		if math.Abs(stored.Lat-coords.Lat) < tolerance && math.Abs(stored.Lng-coords.Lng) < tolerance {
			matches = append(matches, locs...)
		}
	}
	return matches
}

// All returns the locations in insertion order
func (r *LocationRegistry) All() []*Location {
	result := make([]*Location, len(r.locations))
	copy(result, r.locations)
	return result
}

// Contains reports whether a location with the given id is present
func (r *LocationRegistry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Len returns the number of locations
func (r *LocationRegistry) Len() int {
	return len(r.locations)
}

// Merge adds all of other's locations into the receiver (union by id)
// and returns the receiver.
func (r *LocationRegistry) Merge(other *LocationRegistry) *LocationRegistry {
	if other == nil {
		return r
	}
	for _, loc := range other.locations {
		r.Add(loc)
	}
	return r
}
