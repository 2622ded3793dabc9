package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
)

type Order struct {
	ID             string      `json:"id"`
	OrderNumber    string      `json:"order_number"`
	UserID         *string     `json:"user_id,omitempty"`
	Email          string      `json:"email"`
	Status         OrderStatus `json:"status"`
	PaymentMethod  string      `json:"payment_method"`
	ShippingMethod string      `json:"shipping_method"`
	Totals
	Notes         string        `json:"notes,omitempty"`
	Items         []OrderItem   `json:"items"`
	Addresses     []Address     `json:"addresses"`
	StatusHistory []StatusEntry `json:"status_history"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// OrderItem is a snapshot of a line item at checkout time.
type OrderItem struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Price     Money   `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  Money   `json:"subtotal"`
}

type Address struct {
	ID           string      `json:"id,omitempty"`
	OrderID      string      `json:"order_id,omitempty"`
	Type         AddressType `json:"type"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	AddressLine1 string      `json:"address_line1"`
	AddressLine2 string      `json:"address_line2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostalCode   string      `json:"postal_code"`
	Country      string      `json:"country"`
	Phone        string      `json:"phone,omitempty"`
}

type StatusEntry struct {
	ID        string      `json:"id,omitempty"`
	OrderID   string      `json:"order_id,omitempty"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note"`
	CreatedAt time.Time   `json:"created_at"`
}
