package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/railops/train-reservation/pkg/telemetry"
)

var (
	// Ticket counters
	TicketsIssued    *telemetry.Counter
	TicketsCancelled *telemetry.Counter

	// Reservation outcome counters
	ReservationsDenied  *telemetry.Counter
	CompensationsTotal  *telemetry.Counter
	CompensationsFailed *telemetry.Counter

	// Projection counters
	ProjectionRefreshes *telemetry.Counter
	ProjectionFailures  *telemetry.Counter

	// Histograms
	PurchaseDuration *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all reservation metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	TicketsIssued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservation_tickets_issued_total",
		Description: "Total number of tickets issued",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservation_tickets_cancelled_total",
		Description: "Total number of tickets cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsDenied, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservation_denials_total",
		Description: "Total number of reservations denied for insufficient seats",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CompensationsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservation_compensations_total",
		Description: "Total number of compensating seat releases after persistence failures",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CompensationsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reservation_compensations_failed_total",
		Description: "Total number of compensating releases that exhausted retries",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ProjectionRefreshes, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "occupancy_projection_refreshes_total",
		Description: "Total number of occupancy projection refreshes",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ProjectionFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "occupancy_projection_failures_total",
		Description: "Total number of failed occupancy projection refreshes",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PurchaseDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "reservation_purchase_duration_seconds",
		Description: "End-to-end duration of batch purchases",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})
	if err != nil {
		return err
	}

	return nil
}

// RecordIssued records issued tickets for a service
func RecordIssued(ctx context.Context, serviceID, class string, count int) {
	if TicketsIssued != nil {
		TicketsIssued.Add(ctx, int64(count),
			attribute.String("service_id", serviceID),
			attribute.String("class", class),
		)
	}
}

// RecordCancelled records a ticket cancellation
func RecordCancelled(ctx context.Context, serviceID, class string) {
	if TicketsCancelled != nil {
		TicketsCancelled.Inc(ctx,
			attribute.String("service_id", serviceID),
			attribute.String("class", class),
		)
	}
}

// RecordDenied records a reservation denied for lack of seats
func RecordDenied(ctx context.Context, serviceID, class string) {
	if ReservationsDenied != nil {
		ReservationsDenied.Inc(ctx,
			attribute.String("service_id", serviceID),
			attribute.String("class", class),
		)
	}
}

// RecordCompensation records a compensating release and whether it stuck
func RecordCompensation(ctx context.Context, serviceID string, failed bool) {
	if CompensationsTotal != nil {
		CompensationsTotal.Inc(ctx, attribute.String("service_id", serviceID))
	}
	if failed && CompensationsFailed != nil {
		CompensationsFailed.Inc(ctx, attribute.String("service_id", serviceID))
	}
}

// RecordProjection records a projection refresh attempt
func RecordProjection(ctx context.Context, serviceID string, err error) {
	if ProjectionRefreshes != nil {
		ProjectionRefreshes.Inc(ctx, attribute.String("service_id", serviceID))
	}
	if err != nil && ProjectionFailures != nil {
		ProjectionFailures.Inc(ctx, attribute.String("service_id", serviceID))
	}
}

// RecordPurchaseDuration records the purchase latency
func RecordPurchaseDuration(ctx context.Context, serviceID string, seconds float64) {
	if PurchaseDuration != nil {
		PurchaseDuration.Record(ctx, seconds, attribute.String("service_id", serviceID))
	}
}
