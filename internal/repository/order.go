package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ozanyurt/order-discounts/internal/domain/order"
)

const (
	listOrdersSQL = `SELECT id, customer_id, total, created_at
		FROM orders ORDER BY created_at, id`

	getOrderByIDSQL = `SELECT id, customer_id, total, created_at
		FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT order_id, product_id, quantity, unit_price, total
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	createOrderSQL = `INSERT INTO orders (id, customer_id, total)
		VALUES ($1, $2, $3)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Items live in a child table; deletes cascade.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns all orders with their line items, oldest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for orderID, its := range items {
		orders[index[orderID]].Items = its
	}
	return orders, nil
}

// GetByID returns a single order with its line items.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return &o, nil
}

// Create persists a new order and its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, createOrderSQL, o.ID, o.CustomerID, o.Total); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	for i, item := range o.Items {
		_, err := tx.Exec(ctx, createOrderItemSQL,
			o.ID, i, item.ProductID, item.Quantity, item.UnitPrice, item.Total,
		)
		if err != nil {
			return fmt.Errorf("creating order %q item %q: %w", o.ID, item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// Delete removes an order and, via cascade, its line items.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// loadItems fetches line items for the given order ids, grouped by order id
// and sorted by their position within the order.
func (r *OrderRepository) loadItems(ctx context.Context, ids []string) (map[string][]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]order.Item)
	for rows.Next() {
		var (
			orderID   string
			item      order.Item
			unitPrice decimal.Decimal
			total     decimal.Decimal
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		item.UnitPrice = unitPrice
		item.Total = total
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		total     decimal.Decimal
		createdAt time.Time
	)
	err := row.Scan(&o.ID, &o.CustomerID, &total, &createdAt)
	o.Total = total
	o.CreatedAt = createdAt
	return o, err
}
