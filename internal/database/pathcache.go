package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"wco-route-planner/internal/models"
)

// RoutePathCacheRepository handles road path cache persistence
type RoutePathCacheRepository interface {
	Get(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error)
	Set(ctx context.Context, entry *models.RoutePathCacheEntry) error
	SetBatch(ctx context.Context, entries []models.RoutePathCacheEntry) error
	Clear(ctx context.Context) error
}

type routePathCacheRepository struct {
	db *sql.DB
}

func (r *routePathCacheRepository) Get(ctx context.Context, origin, dest models.Coordinates) (*models.RoutePathCacheEntry, error) {
	query := `
		SELECT origin_lat, origin_lng, dest_lat, dest_lng, path_json, distance_meters
		FROM route_path_cache
		WHERE ROUND(origin_lat, 5) = ROUND(?, 5)
		  AND ROUND(origin_lng, 5) = ROUND(?, 5)
		  AND ROUND(dest_lat, 5) = ROUND(?, 5)
		  AND ROUND(dest_lng, 5) = ROUND(?, 5)
	`

	var entry models.RoutePathCacheEntry
	var pathJSON string
	err := r.db.QueryRowContext(ctx, query, origin.Lat, origin.Lng, dest.Lat, dest.Lng).Scan(
		&entry.Origin.Lat, &entry.Origin.Lng, &entry.Destination.Lat, &entry.Destination.Lng,
		&pathJSON, &entry.DistanceMeters,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached path: %w", err)
	}

	if err := json.Unmarshal([]byte(pathJSON), &entry.Path); err != nil {
		return nil, fmt.Errorf("failed to decode cached path: %w", err)
	}

	return &entry, nil
}

func (r *routePathCacheRepository) Set(ctx context.Context, entry *models.RoutePathCacheEntry) error {
	pathJSON, err := json.Marshal(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to encode path: %w", err)
	}

	query := `
		INSERT INTO route_path_cache (origin_lat, origin_lng, dest_lat, dest_lng, path_json, distance_meters)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin_lat, origin_lng, dest_lat, dest_lng)
		DO UPDATE SET path_json = excluded.path_json, distance_meters = excluded.distance_meters, cached_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.Origin.Lat, entry.Origin.Lng, entry.Destination.Lat, entry.Destination.Lng,
		string(pathJSON), entry.DistanceMeters,
	)
	if err != nil {
		return fmt.Errorf("failed to set cached path: %w", err)
	}

	return nil
}

func (r *routePathCacheRepository) SetBatch(ctx context.Context, entries []models.RoutePathCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO route_path_cache (origin_lat, origin_lng, dest_lat, dest_lng, path_json, distance_meters)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin_lat, origin_lng, dest_lat, dest_lng)
		DO UPDATE SET path_json = excluded.path_json, distance_meters = excluded.distance_meters, cached_at = CURRENT_TIMESTAMP
	`

	for _, entry := range entries {
		pathJSON, err := json.Marshal(entry.Path)
		if err != nil {
			return fmt.Errorf("failed to encode path: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			entry.Origin.Lat, entry.Origin.Lng, entry.Destination.Lat, entry.Destination.Lng,
			string(pathJSON), entry.DistanceMeters,
		)
		if err != nil {
			return fmt.Errorf("failed to set cached path: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *routePathCacheRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM route_path_cache`)
	if err != nil {
		return fmt.Errorf("failed to clear route path cache: %w", err)
	}
	return nil
}
