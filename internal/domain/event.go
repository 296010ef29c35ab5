package domain

import "time"

// TicketEventType identifies the kind of ticket lifecycle event
type TicketEventType string

const (
	TicketEventIssued    TicketEventType = "TICKET_ISSUED"
	TicketEventCancelled TicketEventType = "TICKET_CANCELLED"
)

// TicketEvent is the message published to the event stream on ticket
// lifecycle transitions. Consumers key on ServiceID so all events for one
// service land in the same partition, in order.
type TicketEvent struct {
	EventID       string          `json:"event_id"`
	EventType     TicketEventType `json:"event_type"`
	TicketID      string          `json:"ticket_id"`
	Code          string          `json:"code"`
	ServiceID     string          `json:"service_id"`
	PassengerID   string          `json:"passenger_id"`
	OriginID      string          `json:"origin_id"`
	DestinationID string          `json:"destination_id"`
	Class         FareClass       `json:"class"`
	Price         float64         `json:"price"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTicketEvent builds a TicketEvent from a ticket
func NewTicketEvent(eventType TicketEventType, ticket *Ticket, eventID string) *TicketEvent {
	return &TicketEvent{
		EventID:       eventID,
		EventType:     eventType,
		TicketID:      ticket.ID,
		Code:          ticket.Code,
		ServiceID:     ticket.ServiceID,
		PassengerID:   ticket.PassengerID,
		OriginID:      ticket.OriginID,
		DestinationID: ticket.DestinationID,
		Class:         ticket.Class,
		Price:         ticket.Price,
		OccurredAt:    time.Now(),
	}
}

// Key returns the partition key for the event
func (e *TicketEvent) Key() string {
	return e.ServiceID
}
