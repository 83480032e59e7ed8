package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"go-shop-api/internal/database"
	"go-shop-api/internal/model"
)

// OrderTx is the set of writes order placement performs inside one
// transaction.
type OrderTx interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	CreateOrder(ctx context.Context, userID int64, total decimal.Decimal) (int64, error)
	InsertItem(ctx context.Context, item model.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

type OrderRepository struct {
	pool database.Pool
}

func NewOrderRepository(pool database.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(tx OrderTx) error) error {
	return database.WithTx(ctx, r.pool, func(tx database.DBTX) error {
		return fn(&orderTx{db: tx})
	})
}

type orderTx struct {
	db database.DBTX
}

// LockProducts takes row locks in ascending id order so that concurrent
// placements touching the same products cannot deadlock.
func (t *orderTx) LockProducts(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	rows, err := t.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]model.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		locked[p.ID] = p
	}

	return locked, rows.Err()
}

func (t *orderTx) CreateOrder(ctx context.Context, userID int64, total decimal.Decimal) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, total_amount) VALUES ($1, $2, $3) RETURNING id`,
		userID, string(model.OrderStatusPending), total).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

func (t *orderTx) InsertItem(ctx context.Context, item model.OrderItem) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// DecrementStock only succeeds while enough stock remains.
func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		 WHERE id = $2 AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return model.ErrInsufficientStock
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, model.ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	o.Status = model.OrderStatus(status)

	items, err := r.itemsFor(ctx, []int64{o.ID})
	if err != nil {
		return model.Order{}, err
	}
	o.Items = items[o.ID]

	return o, nil
}

// ListByUser returns a page of the user's orders, newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, q model.OrderQuery) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, q.UserID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders, err := r.queryOrders(ctx,
		`SELECT id, user_id, status, total_amount, created_at FROM orders
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		q.UserID, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT id, user_id, status, total_amount, created_at FROM orders
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
}

func (r *OrderRepository) StatsByUser(ctx context.Context, userID int64) (model.OrderStats, error) {
	var stats model.OrderStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders WHERE user_id = $1`, userID).
		Scan(&stats.TotalOrders, &stats.TotalSpent)
	if err != nil {
		return model.OrderStats{}, fmt.Errorf("order stats: %w", err)
	}
	return stats, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		var o model.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		 FROM order_items WHERE order_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	return byOrder, rows.Err()
}
