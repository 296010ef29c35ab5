package domain

// ClassAvailability is the per-class view returned by availability reads
type ClassAvailability struct {
	Class        FareClass `json:"class"`
	Capacity     int       `json:"capacity"`
	Sold         int       `json:"sold"`
	Available    int       `json:"available"`
	OccupancyPct float64   `json:"occupancy_pct"`
}

// LedgerSnapshot is a point-in-time read of a service's capacity ledger.
// It is a copy, not a live view; admission control always goes through the
// atomic reserve primitive, never through a snapshot.
type LedgerSnapshot struct {
	ServiceID string
	Classes   map[FareClass]ClassCounters
}

// ClassCounters holds the two counters tracked per fare class
type ClassCounters struct {
	Capacity int
	Sold     int
}

// TotalSold sums sold seats across classes
func (s *LedgerSnapshot) TotalSold() int {
	total := 0
	for _, c := range s.Classes {
		total += c.Sold
	}
	return total
}

// TotalCapacity sums capacity across classes
func (s *LedgerSnapshot) TotalCapacity() int {
	total := 0
	for _, c := range s.Classes {
		total += c.Capacity
	}
	return total
}

// Availability converts the snapshot into the per-class availability view.
// Available is floored at zero so an over-released counter never surfaces
// as negative availability.
func (s *LedgerSnapshot) Availability() []ClassAvailability {
	out := make([]ClassAvailability, 0, len(s.Classes))
	for class, c := range s.Classes {
		available := c.Capacity - c.Sold
		if available < 0 {
			available = 0
		}
		pct := 0.0
		if c.Capacity > 0 {
			pct = float64(c.Sold) / float64(c.Capacity) * 100
		}
		out = append(out, ClassAvailability{
			Class:        class,
			Capacity:     c.Capacity,
			Sold:         c.Sold,
			Available:    available,
			OccupancyPct: pct,
		})
	}
	return out
}
