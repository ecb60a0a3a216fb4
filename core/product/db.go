package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Fetch returns a single product by id.
func Fetch(ctx context.Context, db sqlx.ExtContext, productID string) (Product, error) {
	const q = `
	SELECT
		product_id, name, description, image_url, price, created_at, updated_at
	FROM products
	WHERE product_id = :product_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, map[string]interface{}{"product_id": productID})
	if err != nil {
		return Product{}, fmt.Errorf("selecting product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Product{}, err
		}
		return Product{}, ErrNotFound
	}

	var p Product
	if err := rows.StructScan(&p); err != nil {
		return Product{}, fmt.Errorf("scanning product: %w", err)
	}
	return p, nil
}

// FetchAll returns the whole catalog ordered by name.
func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `
	SELECT
		product_id, name, description, image_url, price, created_at, updated_at
	FROM products
	ORDER BY name`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("selecting products: %w", err)
	}
	defer rows.Close()

	ps := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.StructScan(&p); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		ps = append(ps, p)
	}

	return ps, rows.Err()
}

// Create stores a new product.
func Create(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	INSERT INTO products
		(product_id, name, description, image_url, price, created_at, updated_at)
	VALUES
		(:product_id, :name, :description, :image_url, :price, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}
