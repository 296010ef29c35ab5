package repository

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/pkg/redis"
	"github.com/railops/train-reservation/pkg/telemetry"
)

//go:embed scripts/reserve_seats.lua
var reserveSeatsScript string

//go:embed scripts/release_seats.lua
var releaseSeatsScript string

//go:embed scripts/ensure_ledger.lua
var ensureLedgerScript string

//go:embed scripts/adjust_capacity.lua
var adjustCapacityScript string

const (
	scriptReserveSeats   = "reserve_seats"
	scriptReleaseSeats   = "release_seats"
	scriptEnsureLedger   = "ensure_ledger"
	scriptAdjustCapacity = "adjust_capacity"
)

// redisLedgerRepository implements LedgerRepository on a Redis hash per
// service. The conditional counter updates run as Lua scripts so the
// capacity check and the increment are a single server-side operation.
type redisLedgerRepository struct {
	client *redis.Client
}

// NewRedisLedgerRepository creates a Redis-backed capacity ledger
func NewRedisLedgerRepository(client *redis.Client) LedgerRepository {
	return &redisLedgerRepository{client: client}
}

// PreloadLedgerScripts loads the ledger Lua scripts into Redis so the first
// requests skip the NOSCRIPT round trip.
func PreloadLedgerScripts(ctx context.Context, client *redis.Client) error {
	scripts := map[string]string{
		scriptReserveSeats:   reserveSeatsScript,
		scriptReleaseSeats:   releaseSeatsScript,
		scriptEnsureLedger:   ensureLedgerScript,
		scriptAdjustCapacity: adjustCapacityScript,
	}
	for name, script := range scripts {
		if _, err := client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}
	return nil
}

func ledgerKey(serviceID string) string {
	return fmt.Sprintf("svc:ledger:%s", serviceID)
}

func (r *redisLedgerRepository) Ensure(ctx context.Context, serviceID string, capacities map[domain.FareClass]int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.ensure")
	defer span.End()
	span.SetAttributes(attribute.String("service.id", serviceID))

	// Deterministic argument order keeps the script call reproducible.
	classes := make([]string, 0, len(capacities))
	for class := range capacities {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)

	args := make([]interface{}, 0, len(classes)*2)
	for _, class := range classes {
		args = append(args, class, capacities[domain.FareClass(class)])
	}

	cmd := r.client.EvalWithFallback(ctx, scriptEnsureLedger, ensureLedgerScript, []string{ledgerKey(serviceID)}, args...)
	if err := cmd.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return fmt.Errorf("failed to ensure ledger for service %s: %w", serviceID, err)
	}
	return nil
}

func (r *redisLedgerRepository) Reserve(ctx context.Context, serviceID string, class domain.FareClass, quantity int) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.reserve_seats")
	defer span.End()
	span.SetAttributes(
		attribute.String("service.id", serviceID),
		attribute.String("fare.class", string(class)),
		attribute.Int("quantity", quantity),
	)

	cmd := r.client.EvalWithFallback(ctx, scriptReserveSeats, reserveSeatsScript, []string{ledgerKey(serviceID)}, string(class), quantity)
	ok, errCode, _, err := parseScriptResult(cmd.Val(), cmd.Err())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return false, fmt.Errorf("failed to reserve seats for service %s: %w", serviceID, err)
	}

	if !ok {
		switch errCode {
		case "LEDGER_NOT_FOUND":
			return false, domain.ErrLedgerNotFound
		case "CLASS_NOT_TRACKED":
			return false, domain.ErrClassNotTracked
		default:
			span.SetAttributes(attribute.Bool("reservation.granted", false))
			return false, nil
		}
	}

	span.SetAttributes(attribute.Bool("reservation.granted", true))
	return true, nil
}

func (r *redisLedgerRepository) Release(ctx context.Context, serviceID string, class domain.FareClass, quantity int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.release_seats")
	defer span.End()
	span.SetAttributes(
		attribute.String("service.id", serviceID),
		attribute.String("fare.class", string(class)),
		attribute.Int("quantity", quantity),
	)

	cmd := r.client.EvalWithFallback(ctx, scriptReleaseSeats, releaseSeatsScript, []string{ledgerKey(serviceID)}, string(class), quantity)
	ok, errCode, _, err := parseScriptResult(cmd.Val(), cmd.Err())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return fmt.Errorf("failed to release seats for service %s: %w", serviceID, err)
	}
	if !ok && errCode == "LEDGER_NOT_FOUND" {
		return domain.ErrLedgerNotFound
	}
	return nil
}

func (r *redisLedgerRepository) AdjustCapacity(ctx context.Context, serviceID string, class domain.FareClass, delta int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.adjust_capacity")
	defer span.End()
	span.SetAttributes(
		attribute.String("service.id", serviceID),
		attribute.String("fare.class", string(class)),
		attribute.Int("delta", delta),
	)

	cmd := r.client.EvalWithFallback(ctx, scriptAdjustCapacity, adjustCapacityScript, []string{ledgerKey(serviceID)}, string(class), delta)
	ok, errCode, _, err := parseScriptResult(cmd.Val(), cmd.Err())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return fmt.Errorf("failed to adjust capacity for service %s: %w", serviceID, err)
	}
	if !ok {
		switch errCode {
		case "LEDGER_NOT_FOUND":
			return domain.ErrLedgerNotFound
		case "CLASS_NOT_TRACKED":
			return domain.ErrClassNotTracked
		}
	}
	return nil
}

func (r *redisLedgerRepository) Snapshot(ctx context.Context, serviceID string) (*domain.LedgerSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("service.id", serviceID))

	fields, err := r.client.Client().HGetAll(ctx, ledgerKey(serviceID)).Result()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read ledger for service %s: %w", serviceID, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrLedgerNotFound
	}

	snapshot := &domain.LedgerSnapshot{
		ServiceID: serviceID,
		Classes:   make(map[domain.FareClass]domain.ClassCounters),
	}
	for field, value := range fields {
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return nil, fmt.Errorf("corrupt ledger field %s for service %s: %w", field, serviceID, convErr)
		}
		switch {
		case strings.HasPrefix(field, "cap:"):
			class := domain.FareClass(strings.TrimPrefix(field, "cap:"))
			counters := snapshot.Classes[class]
			counters.Capacity = n
			snapshot.Classes[class] = counters
		case strings.HasPrefix(field, "sold:"):
			class := domain.FareClass(strings.TrimPrefix(field, "sold:"))
			counters := snapshot.Classes[class]
			counters.Sold = n
			snapshot.Classes[class] = counters
		}
	}
	return snapshot, nil
}

// parseScriptResult decodes the {ok, err_code, value} reply shared by the
// ledger scripts.
func parseScriptResult(val interface{}, err error) (bool, string, int64, error) {
	if err != nil {
		return false, "", 0, err
	}

	reply, ok := val.([]interface{})
	if !ok || len(reply) < 2 {
		return false, "", 0, fmt.Errorf("unexpected script reply: %v", val)
	}

	okFlag, _ := reply[0].(int64)
	errCode, _ := reply[1].(string)

	var value int64
	if len(reply) >= 3 {
		value, _ = reply[2].(int64)
	}
	return okFlag == 1, errCode, value, nil
}
