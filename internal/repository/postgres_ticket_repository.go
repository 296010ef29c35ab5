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

// PostgresTicketRepository implements TicketRepository using PostgreSQL with pgxpool
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

// CreateBatch inserts all tickets inside a single transaction
func (r *PostgresTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.create_batch")
	defer span.End()

	span.SetAttributes(attribute.Int("ticket_count", len(tickets)))

	if len(tickets) == 0 {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tickets (
			id, code, service_id, passenger_id, origin_id, destination_id,
			class, price, status, purchased_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	batch := &pgx.Batch{}
	for _, ticket := range tickets {
		batch.Queue(query,
			ticket.ID,
			ticket.Code,
			ticket.ServiceID,
			ticket.PassengerID,
			ticket.OriginID,
			ticket.DestinationID,
			string(ticket.Class),
			ticket.Price,
			ticket.Status.String(),
			ticket.PurchasedAt,
			ticket.UpdatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range tickets {
		if _, err := results.Exec(); err != nil {
			results.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to close ticket batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit ticket batch: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a ticket by its ID
func (r *PostgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", id))

	query := `
		SELECT
			id, code, service_id, passenger_id, origin_id, destination_id,
			class, price, status, purchased_at, updated_at
		FROM tickets
		WHERE id = $1
	`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// UpdateStatus updates only the status of a ticket
func (r *PostgresTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_id", id),
		attribute.String("status", status.String()),
	)

	query := `
		UPDATE tickets SET
			status = $2,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status.String(), time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrTicketNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListByPassengers retrieves tickets belonging to any of the given passengers
func (r *PostgresTicketRepository) ListByPassengers(ctx context.Context, passengerIDs []string, limit, offset int) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.list_by_passengers")
	defer span.End()

	span.SetAttributes(
		attribute.Int("passenger_count", len(passengerIDs)),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	if len(passengerIDs) == 0 {
		span.SetStatus(codes.Ok, "")
		return nil, nil
	}

	query := `
		SELECT
			id, code, service_id, passenger_id, origin_id, destination_id,
			class, price, status, purchased_at, updated_at
		FROM tickets
		WHERE passenger_id = ANY($1)
		ORDER BY purchased_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, passengerIDs, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(tickets)))
	span.SetStatus(codes.Ok, "")
	return tickets, nil
}

// CountActiveByService counts tickets that still occupy a seat on a service
func (r *PostgresTicketRepository) CountActiveByService(ctx context.Context, serviceID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.count_active_by_service")
	defer span.End()

	span.SetAttributes(attribute.String("service_id", serviceID))

	query := `
		SELECT COUNT(*) FROM tickets
		WHERE service_id = $1 AND status IN ('PURCHASED', 'USED')
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, serviceID).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// scanTicket scans a row into a Ticket struct
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	ticket := &domain.Ticket{}
	var class, status string

	err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.ServiceID,
		&ticket.PassengerID,
		&ticket.OriginID,
		&ticket.DestinationID,
		&class,
		&ticket.Price,
		&status,
		&ticket.PurchasedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.Class = domain.FareClass(class)
	ticket.Status = domain.TicketStatus(status)
	return ticket, nil
}

// Ensure PostgresTicketRepository implements TicketRepository
var _ TicketRepository = (*PostgresTicketRepository)(nil)
