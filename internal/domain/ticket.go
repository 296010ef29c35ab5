package domain

import "time"

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusPurchased TicketStatus = "PURCHASED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusUsed      TicketStatus = "USED"
)

// String returns the string representation of the status
func (s TicketStatus) String() string {
	return string(s)
}

// Ticket is one purchased seat-instance on a scheduled service. Tickets are
// created in all-or-nothing batches and cancelled individually; they are
// never physically deleted.
type Ticket struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	ServiceID     string       `json:"service_id"`
	PassengerID   string       `json:"passenger_id"`
	OriginID      string       `json:"origin_id"`
	DestinationID string       `json:"destination_id"`
	Class         FareClass    `json:"class"`
	Price         float64      `json:"price"`
	Status        TicketStatus `json:"status"`
	PurchasedAt   time.Time    `json:"purchased_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsCancelled reports whether the ticket has been cancelled
func (t *Ticket) IsCancelled() bool {
	return t.Status == TicketStatusCancelled
}

// IsUsed reports whether the ticket has been used
func (t *Ticket) IsUsed() bool {
	return t.Status == TicketStatusUsed
}
