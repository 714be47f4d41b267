package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devnology/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, status, total_price_in_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderLineSQL = `INSERT INTO order_lines (
			order_id, product_id, product_name,
			price_in_cents, has_discount, discount_in_percent, price_with_discount_in_cents,
			quantity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listOrdersByUserSQL = `SELECT id, user_id, status, total_price_in_cents, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	listLinesByOrdersSQL = `SELECT order_id, product_id, product_name,
			price_in_cents, has_discount, discount_in_percent, price_with_discount_in_cents,
			quantity
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create writes the order row and all of its line rows in one transaction.
// On any failure the transaction rolls back and no rows remain.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Status, o.TotalPriceInCents, o.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	batch := &pgx.Batch{}
	for _, l := range o.Lines {
		batch.Queue(insertOrderLineSQL,
			o.ID, l.ProductID, l.ProductName,
			l.PriceInCents, l.HasDiscount, l.DiscountInPercent, l.PriceWithDiscountInCents,
			l.Quantity,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "insert order lines for %s", o.ID)
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// ListByUser returns the user's orders newest first, each with its lines in
// insertion order. Two batched queries: orders, then all lines at once.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var o order.Order
		err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPriceInCents, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	lineRows, err := r.pool.Query(ctx, listLinesByOrdersSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list order lines")
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var (
			orderID string
			l       order.Line
		)
		if err := lineRows.Scan(&orderID, &l.ProductID, &l.ProductName,
			&l.PriceInCents, &l.HasDiscount, &l.DiscountInPercent, &l.PriceWithDiscountInCents,
			&l.Quantity,
		); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order lines")
	}
	return orders, nil
}
