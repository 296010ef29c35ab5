package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/pkg/telemetry"
)

// PostgresPassengerRepository implements PassengerRepository using PostgreSQL with pgxpool
type PostgresPassengerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPassengerRepository creates a new PostgresPassengerRepository
func NewPostgresPassengerRepository(pool *pgxpool.Pool) *PostgresPassengerRepository {
	return &PostgresPassengerRepository{pool: pool}
}

// OwnedBy reports whether the passenger belongs to the account
func (r *PostgresPassengerRepository) OwnedBy(ctx context.Context, passengerID, accountID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.passenger.owned_by")
	defer span.End()

	span.SetAttributes(
		attribute.String("passenger_id", passengerID),
		attribute.String("account_id", accountID),
	)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM passengers
			WHERE id = $1 AND account_id = $2
		)
	`

	var owned bool
	if err := r.pool.QueryRow(ctx, query, passengerID, accountID).Scan(&owned); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check passenger ownership: %w", err)
	}

	span.SetAttributes(attribute.Bool("owned", owned))
	span.SetStatus(codes.Ok, "")
	return owned, nil
}

// ListIDsByAccount returns the ids of all passengers on the account
func (r *PostgresPassengerRepository) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.passenger.list_ids_by_account")
	defer span.End()

	span.SetAttributes(attribute.String("account_id", accountID))

	query := `SELECT id FROM passengers WHERE account_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan passenger id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating passengers: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// Ensure PostgresPassengerRepository implements PassengerRepository
var _ PassengerRepository = (*PostgresPassengerRepository)(nil)
