package product

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Supplier tags where a product was sourced from. The set is closed: catalog
// importers map every external provider onto one of these two values.
type Supplier string

const (
	SupplierDomestic      Supplier = "domestic"
	SupplierInternational Supplier = "international"
)

// Product is a catalog item. Prices are integer minor currency units (cents).
//
// PriceWithDiscountInCents is resolved at catalog write time and is the
// single source of truth for the effective unit price: when HasDiscount is
// false it equals PriceInCents. Consumers must not recompute it from
// DiscountInPercent.
type Product struct {
	ID                       int64
	SourceID                 string
	Name                     string
	Description              string
	PriceInCents             int64
	HasDiscount              bool
	DiscountInPercent        int
	PriceWithDiscountInCents int64
	Category                 string
	Material                 string
	Supplier                 Supplier
	Images                   []string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)

	// GetByIDs returns the subset of requested ids that exist, in a single
	// batched query. Unknown ids are silently omitted; callers are
	// responsible for detecting the gap.
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
