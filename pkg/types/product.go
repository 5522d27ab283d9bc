package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability is the derived display state of a product's stock.
type Availability string

const (
	Available  Availability = "available"
	OutOfStock Availability = "out of stock"
)

// AvailabilityFor computes the availability string for a stock count.
// It is recomputed server-side on every stock mutation.
func AvailabilityFor(stock int) Availability {
	if stock > 0 {
		return Available
	}
	return OutOfStock
}

// Product is a catalog entry with a live stock count. Orders never reference
// products directly; they embed LineItem snapshots taken at creation time.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Ingredients  string          `json:"ingredients"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Image        string          `json:"image"`
	Availability Availability    `json:"availability"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}
