package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmilosz/storecart/api/web"
	"github.com/jmilosz/storecart/api/weberr"
	"github.com/jmilosz/storecart/core/claims"
	"github.com/jmilosz/storecart/core/product"
	"github.com/jmilosz/storecart/database"
	"github.com/jmilosz/storecart/validate"
	"github.com/jmoiron/sqlx"
)

// HandleShow returns the authenticated user's line items.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		items, err := FetchItems(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching cart of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, items, http.StatusOK)
	}
}

// HandleCreateItem adds a product to the user's cart, merging quantities when
// the product is already present. The product snapshot (name, image, price)
// is captured here, at add time.
func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var inew ItemNew
		if err := web.Decode(w, r, &inew); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding item payload: %w", err))
		}

		if err := validate.Check(inew); err != nil {
			return weberr.Unprocessable(err)
		}

		if inew.Quantity == 0 {
			inew.Quantity = 1
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			p, err := product.Fetch(ctx, tx, inew.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					err := fmt.Errorf("unknown product[%s]", inew.ProductID)
					return weberr.Unprocessable(err, weberr.WithFields(map[string]interface{}{
						"product_id": inew.ProductID,
					}))
				}
				return fmt.Errorf("fetching product[%s]: %w", inew.ProductID, err)
			}

			now := time.Now().UTC()
			item := LineItem{
				ID:        validate.GenerateID(),
				UserID:    clm.UserID,
				ProductID: p.ID,
				Name:      p.Name,
				ImageURL:  p.ImageURL,
				UnitPrice: p.Price,
				Quantity:  inew.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}

			if err := UpsertItem(ctx, tx, item); err != nil {
				return fmt.Errorf("adding product[%s] to cart of user[%s]: %w", p.ID, clm.UserID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleUpdateItem replaces the quantity of one line item. A non-positive
// quantity is rejected: clients remove items explicitly. An unknown item id
// is skipped silently, since the row may have been removed concurrently.
func HandleUpdateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.Unprocessable(err)
		}

		var iup ItemUp
		if err := web.Decode(w, r, &iup); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding quantity payload: %w", err))
		}

		if err := validate.Check(iup); err != nil {
			return weberr.Unprocessable(err)
		}

		up := QuantityUp{
			UserID:    clm.UserID,
			ItemID:    itemID,
			Quantity:  iup.Quantity,
			UpdatedAt: time.Now().UTC(),
		}

		if _, err := UpdateQuantity(ctx, db, up); err != nil {
			return fmt.Errorf("updating item[%s] of user[%s]: %w", itemID, clm.UserID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDeleteItem removes one line item. Removal is idempotent.
func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.Unprocessable(err)
		}

		if err := DeleteItem(ctx, db, clm.UserID, itemID); err != nil {
			return fmt.Errorf("deleting item[%s] of user[%s]: %w", itemID, clm.UserID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDelete empties the user's cart.
func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Delete(ctx, db, clm.UserID); err != nil {
			return fmt.Errorf("clearing cart of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
