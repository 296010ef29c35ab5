package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// PostgresVehicleRepository implements VehicleRepository using PostgreSQL with pgxpool
type PostgresVehicleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVehicleRepository creates a new PostgresVehicleRepository
func NewPostgresVehicleRepository(pool *pgxpool.Pool) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{pool: pool}
}

// GetByID retrieves a vehicle with its class-tagged cars
func (r *PostgresVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.vehicle.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("vehicle_id", id))

	query := `SELECT id, name FROM vehicles WHERE id = $1`

	vehicle := &domain.Vehicle{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&vehicle.ID, &vehicle.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrVehicleNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	carsQuery := `
		SELECT class, seat_capacity, active
		FROM vehicle_cars
		WHERE vehicle_id = $1
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, carsQuery, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get vehicle cars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var car domain.Car
		var class string
		if err := rows.Scan(&class, &car.SeatCapacity, &car.Active); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan vehicle car: %w", err)
		}
		car.Class = domain.FareClass(class)
		vehicle.Cars = append(vehicle.Cars, car)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating vehicle cars: %w", err)
	}

	span.SetAttributes(attribute.Int("car_count", len(vehicle.Cars)))
	span.SetStatus(codes.Ok, "")
	return vehicle, nil
}

// Ensure PostgresVehicleRepository implements VehicleRepository
var _ VehicleRepository = (*PostgresVehicleRepository)(nil)
