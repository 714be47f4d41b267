package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/devnology/storefront/internal/domain/product"
)

// ErrEmptyCart is returned when an order is placed with no lines.
var ErrEmptyCart = errors.New("at least one product is required")

// ProductNotFoundError indicates a requested product does not exist in the
// catalog. The whole order is rejected; nothing is persisted.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line with a quantity below 1.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %d", e.ProductID)
}

// Service is the order pricing engine. It re-prices every line from the
// current catalog, freezes the resolved prices into an immutable snapshot,
// and persists it in one transaction.
type Service struct {
	products product.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// Create places an order for userID.
//
// All referenced products are fetched in a single batch so every line is
// priced against one consistent catalog snapshot; the engine never re-reads
// a price after that fetch. Each call creates a new order — there is no
// idempotency key, matching "place order" button semantics.
func (s *Service) Create(ctx context.Context, userID string, lines []CartLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Validate quantities and collect distinct product ids before touching
	// the catalog.
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID}
		}
		if _, ok := seen[l.ProductID]; !ok {
			seen[l.ProductID] = struct{}{}
			ids = append(ids, l.ProductID)
		}
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Freeze catalog prices into the snapshot. The discounted price comes
	// from the catalog as-is; it is not recomputed from the percentage.
	orderLines := make([]Line, len(lines))
	var total int64
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}

		orderLines[i] = Line{
			ProductID:                p.ID,
			ProductName:              p.Name,
			PriceInCents:             p.PriceInCents,
			HasDiscount:              p.HasDiscount,
			DiscountInPercent:        p.DiscountInPercent,
			PriceWithDiscountInCents: p.PriceWithDiscountInCents,
			Quantity:                 l.Quantity,
		}
		total += orderLines[i].Subtotal()
	}

	o := &Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		Status:            StatusPending,
		TotalPriceInCents: total,
		CreatedAt:         s.now().UTC(),
		Lines:             orderLines,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// ListByUser returns the user's order history, newest first. Snapshots are
// returned exactly as frozen at creation time; nothing is recomputed.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
