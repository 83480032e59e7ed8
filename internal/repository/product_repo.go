package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"go-shop-api/internal/database"
	"go-shop-api/internal/model"
)

const productColumns = `id, name, description, price, category, stock_quantity, created_at, updated_at`

type ProductRepository struct {
	db database.DBTX
}

func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, model.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// List returns one page ordered by id and the total matching count.
func (r *ProductRepository) List(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	where := ""
	args := make([]any, 0, 3)
	if category := strings.TrimSpace(q.Category); category != "" {
		where = "WHERE lower(category) = lower($1)"
		args = append(args, category)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	dataQuery := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY id LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, q.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, total, rows.Err()
}

// Seed inserts the catalog only into an empty products table and reports
// how many rows were written.
func (r *ProductRepository) Seed(ctx context.Context, products []model.Product) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for i, p := range products {
		_, err := r.db.Exec(ctx,
			`INSERT INTO products (name, description, price, category, stock_quantity)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.Name, p.Description, p.Price, p.Category, p.StockQuantity)
		if err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}

	return len(products), nil
}
