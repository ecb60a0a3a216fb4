package cart

import (
	"time"
)

// LineItem is one product-and-quantity pair within a cart. Name, ImageURL and
// UnitPrice are a denormalized snapshot of the product taken at add-time; they
// are not re-validated against live product data.
type LineItem struct {
	ID        string    `json:"id" db:"item_id"`
	UserID    string    `json:"-" db:"user_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	UnitPrice int64     `json:"unitPrice" db:"unit_price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Cart is a point-in-time snapshot of the items plus the totals derived from
// them. Totals are never stored or mutated on their own: Build is the only
// place they are computed.
type Cart struct {
	Items       []LineItem `json:"items"`
	TotalItems  int        `json:"totalItems"`
	TotalAmount int64      `json:"totalAmount"`
}

// Build derives a Cart from an item list. UnitPrice is in cents, so
// TotalAmount stays an exact integer sum.
func Build(items []LineItem) Cart {
	c := Cart{Items: items}
	for _, it := range items {
		c.TotalItems += it.Quantity
		c.TotalAmount += it.UnitPrice * int64(it.Quantity)
	}
	return c
}

// QuantityUp carries a quantity replacement for one of the user's line items.
type QuantityUp struct {
	UserID    string    `db:"user_id"`
	ItemID    string    `db:"item_id"`
	Quantity  int       `db:"quantity"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ItemNew is the payload for adding a product to a cart. A zero Quantity
// means the caller omitted it and defaults to 1.
type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1"`
}

// ItemUp is the payload for replacing a line item's quantity. Non-positive
// values are rejected: removal is an explicit operation, never a side effect
// of an update.
type ItemUp struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
