package domain

// Car is one class-tagged car of a vehicle
type Car struct {
	Class        FareClass `json:"class"`
	SeatCapacity int       `json:"seat_capacity"`
	Active       bool      `json:"active"`
}

// Vehicle is the physical train unit assigned to scheduled services
type Vehicle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cars []Car  `json:"cars"`
}

// CapacityByClass sums active car capacities per fare class. This seeds the
// capacity ledger once, on the first reservation for a service.
func (v *Vehicle) CapacityByClass() map[FareClass]int {
	capacities := make(map[FareClass]int)
	for _, car := range v.Cars {
		if !car.Active || car.SeatCapacity <= 0 {
			continue
		}
		capacities[car.Class] += car.SeatCapacity
	}
	return capacities
}
