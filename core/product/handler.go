package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmilosz/storecart/api/web"
	"github.com/jmilosz/storecart/api/weberr"
	"github.com/jmilosz/storecart/validate"
	"github.com/jmoiron/sqlx"
)

// HandleList returns the product catalog.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ps, err := FetchAll(ctx, db)
		if err != nil {
			return fmt.Errorf("fetching products: %w", err)
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

// HandleShow returns a single product.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.Unprocessable(err)
		}

		p, err := Fetch(ctx, db, productID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", productID, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

// HandleCreate stores a new catalog entry. Admin only, enforced by middleware.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pnew ProductNew
		if err := web.Decode(w, r, &pnew); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding product payload: %w", err))
		}

		if err := validate.Check(pnew); err != nil {
			return weberr.Unprocessable(err)
		}

		now := time.Now().UTC()
		p := Product{
			ID:          validate.GenerateID(),
			Name:        pnew.Name,
			Description: pnew.Description,
			ImageURL:    pnew.ImageURL,
			Price:       pnew.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, p); err != nil {
			return fmt.Errorf("creating product: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
	}
}
