package domain

import "time"

// FareClass is a category of seating with its own capacity pool
type FareClass string

const (
	FareClassTurista    FareClass = "TURISTA"
	FareClassPreferente FareClass = "PREFERENTE"
)

// Stop is one station on a scheduled service's route, in travel order
type Stop struct {
	StationID string `json:"station_id"`
	Order     int    `json:"order"`
}

// ScheduledService represents one dated departure of one vehicle on one route.
// CurrentOccupancy and OccupancyPct are a denormalized projection maintained
// by the occupancy projector; the capacity ledger stays authoritative for
// admission decisions.
type ScheduledService struct {
	ID            string    `json:"id"`
	RouteID       string    `json:"route_id"`
	VehicleID     string    `json:"vehicle_id,omitempty"`
	Stops         []Stop    `json:"stops"`
	Fare          float64   `json:"fare"`
	TotalCapacity int       `json:"total_capacity"`
	DepartureAt   time.Time `json:"departure_at"`
	Status        string    `json:"status"`

	CurrentOccupancy int     `json:"current_occupancy"`
	OccupancyPct     float64 `json:"occupancy_pct"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasVehicle reports whether a vehicle has been assigned. A service is not
// sellable until one is.
func (s *ScheduledService) HasVehicle() bool {
	return s.VehicleID != ""
}

// ValidateTrip checks that the requested origin/destination pair is a
// physically possible trip on this service: both stations are stops and the
// origin comes strictly before the destination. It must run before any
// ledger mutation so a doomed request never consumes capacity.
func (s *ScheduledService) ValidateTrip(originID, destinationID string) error {
	if len(s.Stops) == 0 {
		return ErrNoStopsDefined
	}

	// Checked independently so origin == destination resolves both orders
	// and falls through to the direction check.
	originOrder, destinationOrder := -1, -1
	for _, stop := range s.Stops {
		if stop.StationID == originID {
			originOrder = stop.Order
		}
		if stop.StationID == destinationID {
			destinationOrder = stop.Order
		}
	}

	if originOrder < 0 || destinationOrder < 0 {
		return ErrStopNotFound
	}
	if originOrder >= destinationOrder {
		return ErrInvalidDirection
	}
	return nil
}

// Occupancy is the recomputed projection for a scheduled service
type Occupancy struct {
	ServiceID string  `json:"service_id"`
	Sold      int     `json:"sold"`
	Capacity  int     `json:"capacity"`
	Pct       float64 `json:"pct"`
}
