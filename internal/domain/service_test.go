package domain

import (
	"errors"
	"testing"
)

func TestScheduledService_ValidateTrip(t *testing.T) {
	service := &ScheduledService{
		ID: "svc-001",
		Stops: []Stop{
			{StationID: "station-a", Order: 0},
			{StationID: "station-b", Order: 1},
			{StationID: "station-c", Order: 2},
		},
	}

	tests := []struct {
		name        string
		origin      string
		destination string
		wantErr     error
	}{
		{
			name:        "valid full trip",
			origin:      "station-a",
			destination: "station-c",
		},
		{
			name:        "valid partial trip",
			origin:      "station-b",
			destination: "station-c",
		},
		{
			name:        "origin after destination",
			origin:      "station-c",
			destination: "station-a",
			wantErr:     ErrInvalidDirection,
		},
		{
			name:        "origin equals destination",
			origin:      "station-b",
			destination: "station-b",
			wantErr:     ErrInvalidDirection,
		},
		{
			name:        "unknown origin",
			origin:      "station-x",
			destination: "station-c",
			wantErr:     ErrStopNotFound,
		},
		{
			name:        "unknown destination",
			origin:      "station-a",
			destination: "station-x",
			wantErr:     ErrStopNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateTrip(tt.origin, tt.destination)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTrip() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScheduledService_ValidateTrip_NoStops(t *testing.T) {
	service := &ScheduledService{ID: "svc-001"}

	err := service.ValidateTrip("station-a", "station-b")
	if !errors.Is(err, ErrNoStopsDefined) {
		t.Errorf("ValidateTrip() error = %v, want %v", err, ErrNoStopsDefined)
	}
}

func TestScheduledService_HasVehicle(t *testing.T) {
	withVehicle := &ScheduledService{ID: "svc-001", VehicleID: "veh-001"}
	if !withVehicle.HasVehicle() {
		t.Error("HasVehicle() = false, want true")
	}

	withoutVehicle := &ScheduledService{ID: "svc-002"}
	if withoutVehicle.HasVehicle() {
		t.Error("HasVehicle() = true, want false")
	}
}

func TestVehicle_CapacityByClass(t *testing.T) {
	vehicle := &Vehicle{
		ID: "veh-001",
		Cars: []Car{
			{Class: FareClassTurista, SeatCapacity: 60, Active: true},
			{Class: FareClassTurista, SeatCapacity: 60, Active: true},
			{Class: FareClassPreferente, SeatCapacity: 30, Active: true},
			{Class: FareClassTurista, SeatCapacity: 60, Active: false}, // out of service
			{Class: FareClassPreferente, SeatCapacity: 0, Active: true},
		},
	}

	capacities := vehicle.CapacityByClass()

	if got := capacities[FareClassTurista]; got != 120 {
		t.Errorf("TURISTA capacity = %d, want 120", got)
	}
	if got := capacities[FareClassPreferente]; got != 30 {
		t.Errorf("PREFERENTE capacity = %d, want 30", got)
	}
}

func TestLedgerSnapshot_Availability(t *testing.T) {
	snapshot := &LedgerSnapshot{
		ServiceID: "svc-001",
		Classes: map[FareClass]ClassCounters{
			FareClassTurista:    {Capacity: 100, Sold: 25},
			FareClassPreferente: {Capacity: 20, Sold: 20},
		},
	}

	if got := snapshot.TotalSold(); got != 45 {
		t.Errorf("TotalSold() = %d, want 45", got)
	}
	if got := snapshot.TotalCapacity(); got != 120 {
		t.Errorf("TotalCapacity() = %d, want 120", got)
	}

	for _, avail := range snapshot.Availability() {
		switch avail.Class {
		case FareClassTurista:
			if avail.Available != 75 {
				t.Errorf("TURISTA available = %d, want 75", avail.Available)
			}
			if avail.OccupancyPct != 25.0 {
				t.Errorf("TURISTA occupancy = %f, want 25.0", avail.OccupancyPct)
			}
		case FareClassPreferente:
			if avail.Available != 0 {
				t.Errorf("PREFERENTE available = %d, want 0", avail.Available)
			}
			if avail.OccupancyPct != 100.0 {
				t.Errorf("PREFERENTE occupancy = %f, want 100.0", avail.OccupancyPct)
			}
		}
	}
}

func TestLedgerSnapshot_Availability_FloorsNegative(t *testing.T) {
	// An over-released counter must never surface as negative availability.
	snapshot := &LedgerSnapshot{
		ServiceID: "svc-001",
		Classes: map[FareClass]ClassCounters{
			FareClassTurista: {Capacity: 10, Sold: 12},
		},
	}

	avail := snapshot.Availability()
	if len(avail) != 1 {
		t.Fatalf("Availability() returned %d classes, want 1", len(avail))
	}
	if avail[0].Available != 0 {
		t.Errorf("available = %d, want 0", avail[0].Available)
	}
}
