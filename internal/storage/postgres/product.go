package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devnology/storefront/internal/domain/product"
)

const (
	productColumns = `id, source_id, supplier, name, description,
		price_in_cents, has_discount, discount_in_percent, price_with_discount_in_cents,
		category, material`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	listImagesSQL = `SELECT product_id, image_url FROM product_images
		WHERE product_id = ANY($1) ORDER BY product_id, position`

	upsertProductSQL = `INSERT INTO products (
			source_id, supplier, name, description,
			price_in_cents, has_discount, discount_in_percent, price_with_discount_in_cents,
			category, material
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (supplier, source_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_in_cents = EXCLUDED.price_in_cents,
			has_discount = EXCLUDED.has_discount,
			discount_in_percent = EXCLUDED.discount_in_percent,
			price_with_discount_in_cents = EXCLUDED.price_with_discount_in_cents,
			category = EXCLUDED.category,
			material = EXCLUDED.material
		RETURNING id`

	deleteImagesSQL = `DELETE FROM product_images WHERE product_id = $1`

	insertImageSQL = `INSERT INTO product_images (product_id, position, image_url) VALUES ($1, $2, $3)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by id.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	if err := r.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	products := []product.Product{p}
	if err := r.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given ids in one batched
// query. Unknown ids are omitted from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	if err := r.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// Upsert writes a product keyed by (supplier, source_id) and replaces its
// image list. Used by the catalog importer; the API never writes products.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var id int64
	err = tx.QueryRow(ctx, upsertProductSQL,
		p.SourceID, p.Supplier, p.Name, p.Description,
		p.PriceInCents, p.HasDiscount, p.DiscountInPercent, p.PriceWithDiscountInCents,
		p.Category, p.Material,
	).Scan(&id)
	if err != nil {
		return errors.Wrapf(err, "upsert product %s/%s", p.Supplier, p.SourceID)
	}

	if _, err := tx.Exec(ctx, deleteImagesSQL, id); err != nil {
		return errors.Wrap(err, "delete images")
	}
	for pos, url := range p.Images {
		if _, err := tx.Exec(ctx, insertImageSQL, id, pos, url); err != nil {
			return errors.Wrap(err, "insert image")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	p.ID = id
	return nil
}

// attachImages loads the image lists for the given products in one query and
// stitches them in place.
func (r *ProductRepository) attachImages(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, listImagesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list product images")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			url       string
		)
		if err := rows.Scan(&productID, &url); err != nil {
			return errors.Wrap(err, "scan image")
		}
		if i, ok := index[productID]; ok {
			products[i].Images = append(products[i].Images, url)
		}
	}
	return errors.Wrap(rows.Err(), "iterate images")
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SourceID, &p.Supplier, &p.Name, &p.Description,
		&p.PriceInCents, &p.HasDiscount, &p.DiscountInPercent, &p.PriceWithDiscountInCents,
		&p.Category, &p.Material,
	)
	return p, err
}
