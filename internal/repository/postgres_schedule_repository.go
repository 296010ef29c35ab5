package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// PostgresScheduleRepository implements ScheduleRepository using PostgreSQL with pgxpool
type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresScheduleRepository creates a new PostgresScheduleRepository
func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

// GetByID retrieves a scheduled service with its ordered stop list
func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledService, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.schedule.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("service_id", id))

	query := `
		SELECT
			id, route_id, vehicle_id, fare, total_capacity, departure_at,
			status, current_occupancy, occupancy_pct, created_at, updated_at
		FROM scheduled_services
		WHERE id = $1
	`

	service := &domain.ScheduledService{}
	var vehicleID *string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.RouteID,
		&vehicleID,
		&service.Fare,
		&service.TotalCapacity,
		&service.DepartureAt,
		&service.Status,
		&service.CurrentOccupancy,
		&service.OccupancyPct,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrServiceNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get scheduled service: %w", err)
	}
	if vehicleID != nil {
		service.VehicleID = *vehicleID
	}

	stops, err := r.getStops(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	service.Stops = stops

	span.SetStatus(codes.Ok, "")
	return service, nil
}

func (r *PostgresScheduleRepository) getStops(ctx context.Context, serviceID string) ([]domain.Stop, error) {
	query := `
		SELECT station_id, stop_order
		FROM service_stops
		WHERE service_id = $1
		ORDER BY stop_order ASC
	`

	rows, err := r.pool.Query(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service stops: %w", err)
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var stop domain.Stop
		if err := rows.Scan(&stop.StationID, &stop.Order); err != nil {
			return nil, fmt.Errorf("failed to scan service stop: %w", err)
		}
		stops = append(stops, stop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service stops: %w", err)
	}
	return stops, nil
}

// UpdateOccupancy persists the denormalized occupancy projection
func (r *PostgresScheduleRepository) UpdateOccupancy(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.schedule.update_occupancy")
	defer span.End()

	span.SetAttributes(
		attribute.String("service_id", serviceID),
		attribute.Int("sold", occupancy.Sold),
		attribute.Float64("pct", occupancy.Pct),
	)

	query := `
		UPDATE scheduled_services SET
			current_occupancy = $2,
			occupancy_pct = $3,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, serviceID, occupancy.Sold, occupancy.Pct, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update occupancy: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrServiceNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListActiveIDs returns ids of services still open for sale
func (r *PostgresScheduleRepository) ListActiveIDs(ctx context.Context, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.schedule.list_active_ids")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id FROM scheduled_services
		WHERE status = 'SCHEDULED' AND departure_at > $1
		ORDER BY departure_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, time.Now(), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list active services: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan service id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating service ids: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// Ensure PostgresScheduleRepository implements ScheduleRepository
var _ ScheduleRepository = (*PostgresScheduleRepository)(nil)
