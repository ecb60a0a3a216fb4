package cart

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// FetchItems returns the line items of the user's cart ordered by add time.
func FetchItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]LineItem, error) {
	const q = `
	SELECT
		item_id, user_id, product_id, name, image_url,
		unit_price, quantity, created_at, updated_at
	FROM cart_items
	WHERE user_id = :user_id
	ORDER BY created_at`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("selecting cart items: %w", err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var it LineItem
		if err := rows.StructScan(&it); err != nil {
			return nil, fmt.Errorf("scanning cart item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// UpsertItem inserts a line item, or when the user already has the product in
// the cart, increments the existing row's quantity instead of duplicating it.
func UpsertItem(ctx context.Context, db sqlx.ExtContext, item LineItem) error {
	const q = `
	INSERT INTO cart_items
		(item_id, user_id, product_id, name, image_url, unit_price, quantity, created_at, updated_at)
	VALUES
		(:item_id, :user_id, :product_id, :name, :image_url, :unit_price, :quantity, :created_at, :updated_at)
	ON CONFLICT (user_id, product_id) DO UPDATE SET
		quantity = cart_items.quantity + excluded.quantity,
		updated_at = excluded.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, item); err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return nil
}

// UpdateQuantity replaces the quantity of the user's line item. It reports
// whether a row matched: a miss is left to the caller, which treats it as a
// silent skip rather than a failure.
func UpdateQuantity(ctx context.Context, db sqlx.ExtContext, up QuantityUp) (bool, error) {
	const q = `
	UPDATE cart_items SET
		quantity = :quantity,
		updated_at = :updated_at
	WHERE user_id = :user_id AND item_id = :item_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, up)
	if err != nil {
		return false, fmt.Errorf("updating cart item quantity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteItem removes one line item. Deleting an absent item is not an error:
// the end state matches the intent either way.
func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, itemID string) error {
	const q = `
	DELETE FROM cart_items
	WHERE user_id = :user_id AND item_id = :item_id`

	arg := map[string]interface{}{"user_id": userID, "item_id": itemID}
	if _, err := sqlx.NamedExecContext(ctx, db, q, arg); err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}
	return nil
}

// Delete empties the user's cart.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `
	DELETE FROM cart_items
	WHERE user_id = :user_id`

	arg := map[string]interface{}{"user_id": userID}
	if _, err := sqlx.NamedExecContext(ctx, db, q, arg); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}
