// Package data loads collection locations from CSV schedule files.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"wco-route-planner/internal/models"
)

// ErrInvalidRow is returned when a CSV row cannot be parsed into a location
type ErrInvalidRow struct {
	File   string
	Line   int
	Reason string
}

func (e *ErrInvalidRow) Error() string {
	return fmt.Sprintf("invalid row %s:%d: %s", e.File, e.Line, e.Reason)
}

// expected CSV header columns, in order
var expectedColumns = []string{"name", "latitude", "longitude", "wco_amount", "disposal_schedule"}

// newLocationID generates the loc_<8hex> id used for CSV-loaded locations
func newLocationID() string {
	return "loc_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// LoadLocations reads one schedule CSV into a registry. The disposal_schedule
// column overrides the default frequency when present and positive.
func LoadLocations(path string, defaultFrequency int) (*models.LocationRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule file: %w", err)
	}
	defer f.Close()

	registry, err := parseLocations(f, path, defaultFrequency)
	if err != nil {
		return nil, err
	}

	log.Printf("[DATA] Loaded %d locations from %s", registry.Len(), path)
	return registry, nil
}

// LoadScheduleFiles loads every schedule's CSV and merges the results into one
// registry. Each schedule's frequency is the default for rows missing a
// disposal_schedule value.
func LoadScheduleFiles(baseDir string, schedules []*models.ScheduleEntry) (*models.LocationRegistry, error) {
	merged := models.NewLocationRegistry()
	for _, entry := range schedules {
		if entry.File == "" {
			continue
		}
		path := entry.File
		if baseDir != "" && !strings.HasPrefix(path, "/") {
			path = baseDir + "/" + path
		}
		registry, err := LoadLocations(path, entry.Frequency)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", entry.ID, err)
		}
		merged.Merge(registry)
	}
	log.Printf("[DATA] Merged registries: %d unique locations", merged.Len())
	return merged, nil
}

func parseLocations(r io.Reader, file string, defaultFrequency int) (*models.LocationRegistry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewLocationRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := columnIndex(header, file)
	if err != nil {
		return nil, err
	}

	registry := models.NewLocationRegistry()
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &ErrInvalidRow{File: file, Line: line, Reason: err.Error()}
		}

		loc, err := parseRow(record, cols, file, line, defaultFrequency)
		if err != nil {
			return nil, err
		}
		registry.Add(loc)
	}
	return registry, nil
}

// columnIndex maps expected column names to their position, tolerating
// reordered headers.
func columnIndex(header []string, file string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range expectedColumns {
		if want == "disposal_schedule" {
			// optional, falls back to the schedule frequency
			continue
		}
		if _, ok := cols[want]; !ok {
			return nil, &ErrInvalidRow{File: file, Line: 1, Reason: fmt.Sprintf("missing column %q", want)}
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int, file string, line, defaultFrequency int) (*models.Location, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field("name")
	if name == "" {
		return nil, &ErrInvalidRow{File: file, Line: line, Reason: "empty name"}
	}

	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return nil, &ErrInvalidRow{File: file, Line: line, Reason: "bad latitude: " + err.Error()}
	}
	lng, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return nil, &ErrInvalidRow{File: file, Line: line, Reason: "bad longitude: " + err.Error()}
	}
	wco, err := strconv.ParseFloat(field("wco_amount"), 64)
	if err != nil {
		return nil, &ErrInvalidRow{File: file, Line: line, Reason: "bad wco_amount: " + err.Error()}
	}
	if wco < 0 {
		return nil, &ErrInvalidRow{File: file, Line: line, Reason: "negative wco_amount"}
	}

	frequency := defaultFrequency
	if raw := field("disposal_schedule"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ErrInvalidRow{File: file, Line: line, Reason: "bad disposal_schedule: " + err.Error()}
		}
		if parsed > 0 {
			frequency = parsed
		}
	}

	return &models.Location{
		ID:               newLocationID(),
		Name:             name,
		Lat:              lat,
		Lng:              lng,
		WCOAmount:        wco,
		DisposalSchedule: frequency,
	}, nil
}
