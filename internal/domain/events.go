package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
)

// OrderEvent is published on the order events topic after each order
// lifecycle change.
type OrderEvent struct {
	Type        string      `json:"type"`
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      *string     `json:"user_id,omitempty"`
	Email       string      `json:"email"`
	Status      OrderStatus `json:"status"`
	GrandTotal  Money       `json:"grand_total"`
	Items       []OrderItem `json:"items,omitempty"`
	Note        string      `json:"note,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

func (e OrderEvent) EventType() string { return e.Type }
