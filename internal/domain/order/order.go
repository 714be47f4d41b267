package order

import (
	"context"
	"time"
)

// Status of an order. Orders are always created pending; no transition logic
// exists in this service.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// CartLine is a client-submitted order line: a product reference and a
// quantity. Only the identity and quantity are trusted; prices are always
// re-resolved from the catalog.
type CartLine struct {
	ProductID int64
	Quantity  int
}

// Line is an order line snapshot. Every price field is captured from the
// catalog at order creation and never changes afterwards, even if the
// referenced product is later repriced or retired.
type Line struct {
	ProductID                int64
	ProductName              string
	PriceInCents             int64
	HasDiscount              bool
	DiscountInPercent        int
	PriceWithDiscountInCents int64
	Quantity                 int
}

// Subtotal is the line's contribution to the order total.
func (l Line) Subtotal() int64 {
	return l.PriceWithDiscountInCents * int64(l.Quantity)
}

// Order is an immutable snapshot of a purchase: once written, its lines and
// totals never change.
type Order struct {
	ID                string
	UserID            string
	Status            Status
	TotalPriceInCents int64
	CreatedAt         time.Time
	Lines             []Line
}

// Repository defines persistence operations for order snapshots.
type Repository interface {
	// Create persists the order and all of its lines atomically: either
	// every row is written or none are.
	Create(ctx context.Context, o *Order) error

	// ListByUser returns a user's order snapshots, newest first. A user
	// with no orders yields an empty slice, not an error.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
