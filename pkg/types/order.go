package types

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order. There is no cancelled or
// rejected state; a pending order can only move forward or be deleted.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusDelivered OrderStatus = "delivered"
)

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving from s
// to target. Same-state moves are not valid transitions; callers treat them
// as no-ops, not errors.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch {
	case s == StatusPending && target == StatusAccepted:
		return true
	case s == StatusAccepted && target == StatusDelivered:
		return true
	}
	return false
}

// LineItem is a denormalized snapshot of a product at order time. Later
// edits to the live Product never alter it; only the display name is
// refreshed best-effort on single-order reads.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a customer order. The identifier is store-assigned, a 24-character
// hex token, immutable once created. TotalPrice is fixed at creation and
// never recomputed from live product prices.
type Order struct {
	ID            string          `json:"id"`
	CustomerEmail string          `json:"customerEmail"`
	Comment       string          `json:"comment,omitempty"`
	Items         []LineItem      `json:"lineItems"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	OrderDate     time.Time       `json:"orderDate"`
	DeliverDate   time.Time       `json:"deliverDate"`
	Status        OrderStatus     `json:"status"`
}

// ComputeTotal sums the line item subtotals. Used once at creation time to
// fix the snapshot total.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// NewOrderID generates a fresh 24-character hex order identifier.
func NewOrderID() string {
	return primitive.NewObjectID().Hex()
}

// ParseOrderID validates a caller-supplied order identifier. Malformed
// identifiers fail with ErrInvalidOrderID before any store access.
func ParseOrderID(s string) (string, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return "", ErrInvalidOrderID
	}
	return id.Hex(), nil
}
