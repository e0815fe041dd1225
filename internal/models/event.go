package models

import "time"

type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventBillGenerated      EventType = "bill.generated"
	EventPaymentRecorded    EventType = "payment.recorded"
	EventPaymentConfirmed   EventType = "payment.confirmed"
	EventPaymentRejected    EventType = "payment.rejected"
)

// Event is the envelope published on the event bus.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	AgencyID   string            `json:"agencyId,omitempty"`
	HouseID    string            `json:"houseId,omitempty"`
	UserID     string            `json:"userId,omitempty"`
	RefID      string            `json:"refId,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
