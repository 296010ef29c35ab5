package dto

import (
	"sort"
	"time"

	"github.com/railops/train-reservation/internal/domain"
)

// PurchaseTicketsRequest represents a request to purchase one batch of tickets
type PurchaseTicketsRequest struct {
	ServiceID     string   `json:"service_id" binding:"required"`
	OriginID      string   `json:"origin_id" binding:"required"`
	DestinationID string   `json:"destination_id" binding:"required"`
	Class         string   `json:"class" binding:"required"`
	PassengerIDs  []string `json:"passenger_ids" binding:"required,min=1"`
}

// PurchaseTicketsResponse represents the outcome of a batch purchase
type PurchaseTicketsResponse struct {
	ServiceID  string            `json:"service_id"`
	Class      string            `json:"class"`
	TotalPrice float64           `json:"total_price"`
	Tickets    []*TicketResponse `json:"tickets"`
}

// CancelTicketResponse represents the outcome of a cancellation
type CancelTicketResponse struct {
	TicketID    string    `json:"ticket_id"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// TicketResponse represents a ticket in API responses
type TicketResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	ServiceID     string    `json:"service_id"`
	PassengerID   string    `json:"passenger_id"`
	OriginID      string    `json:"origin_id"`
	DestinationID string    `json:"destination_id"`
	Class         string    `json:"class"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

// ListTicketsResponse represents a page of tickets
type ListTicketsResponse struct {
	Tickets []*TicketResponse `json:"tickets"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// ClassAvailabilityResponse represents availability for one fare class
type ClassAvailabilityResponse struct {
	Class     string  `json:"class"`
	Capacity  int     `json:"capacity"`
	Sold      int     `json:"sold"`
	Available int     `json:"available"`
	SoldPct   float64 `json:"sold_pct"`
}

// AvailabilityResponse represents current availability for a service
type AvailabilityResponse struct {
	ServiceID string                       `json:"service_id"`
	Classes   []*ClassAvailabilityResponse `json:"classes"`
	Total     *ClassAvailabilityResponse   `json:"total"`
}

// AdjustCapacityRequest represents an admin request to grow class capacity
type AdjustCapacityRequest struct {
	Class string `json:"class" binding:"required"`
	Delta int    `json:"delta" binding:"required,min=1"`
}

// AdjustCapacityResponse represents the ledger state after an adjustment
type AdjustCapacityResponse struct {
	ServiceID string `json:"service_id"`
	Class     string `json:"class"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
}

// TicketFromDomain converts a domain Ticket to a TicketResponse
func TicketFromDomain(t *domain.Ticket) *TicketResponse {
	return &TicketResponse{
		ID:            t.ID,
		Code:          t.Code,
		ServiceID:     t.ServiceID,
		PassengerID:   t.PassengerID,
		OriginID:      t.OriginID,
		DestinationID: t.DestinationID,
		Class:         string(t.Class),
		Price:         t.Price,
		Status:        t.Status.String(),
		PurchasedAt:   t.PurchasedAt,
	}
}

// TicketsFromDomain converts a slice of domain Tickets
func TicketsFromDomain(tickets []*domain.Ticket) []*TicketResponse {
	out := make([]*TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketFromDomain(t))
	}
	return out
}

// AvailabilityFromSnapshot converts a ledger snapshot to an API response
func AvailabilityFromSnapshot(snapshot *domain.LedgerSnapshot) *AvailabilityResponse {
	resp := &AvailabilityResponse{ServiceID: snapshot.ServiceID}

	classes := snapshot.Availability()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Class < classes[j].Class })
	for _, c := range classes {
		resp.Classes = append(resp.Classes, &ClassAvailabilityResponse{
			Class:     string(c.Class),
			Capacity:  c.Capacity,
			Sold:      c.Sold,
			Available: c.Available,
			SoldPct:   c.OccupancyPct,
		})
	}

	totalCapacity := snapshot.TotalCapacity()
	totalSold := snapshot.TotalSold()
	totalAvailable := totalCapacity - totalSold
	if totalAvailable < 0 {
		totalAvailable = 0
	}
	totalPct := 0.0
	if totalCapacity > 0 {
		totalPct = float64(totalSold) / float64(totalCapacity) * 100
	}
	resp.Total = &ClassAvailabilityResponse{
		Class:     "ALL",
		Capacity:  totalCapacity,
		Sold:      totalSold,
		Available: totalAvailable,
		SoldPct:   totalPct,
	}
	return resp
}
