package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmilosz/storecart/core/cart"
	"github.com/jmilosz/storecart/core/product"
	"github.com/jmilosz/storecart/validate"
	"github.com/sirupsen/logrus"
)

// LocalStore is the anonymous/offline cart: it owns its items outright,
// recomputes totals after every mutation through cart.Build, and persists a
// snapshot after every change. There is no server to disagree with, so its
// mutations cannot fail except on invalid input.
type LocalStore struct {
	storage Storage
	log     logrus.FieldLogger

	mu    sync.Mutex
	items []cart.LineItem
}

// NewLocalStore restores the persisted snapshot if one exists and starts
// empty otherwise. An incompatible snapshot version is discarded with a
// warning rather than treated as fatal.
func NewLocalStore(ctx context.Context, storage Storage, log logrus.FieldLogger) (*LocalStore, error) {
	s := &LocalStore{
		storage: storage,
		log:     log,
	}

	items, err := storage.Load(ctx)
	switch {
	case err == nil:
		s.items = items
	case errors.Is(err, ErrNoSnapshot):
	case errors.Is(err, ErrSnapshotSchema):
		log.WithError(err).Warn("discarding incompatible cart snapshot")
	default:
		return nil, fmt.Errorf("restoring cart snapshot: %w", err)
	}

	return s, nil
}

// AddItem puts quantity units of the product in the cart, merging into the
// existing line item when the product is already present. Quantities below 1
// are coerced to 1. The product snapshot (name, image, price) is captured
// here and never re-validated.
func (s *LocalStore) AddItem(ctx context.Context, p product.Product, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" || p.Price < 0 {
		return fmt.Errorf("product[%s]: %w", p.ID, ErrInvalidProduct)
	}
	if quantity < 1 {
		quantity = 1
	}

	now := time.Now().UTC()

	for i := range s.items {
		if s.items[i].ProductID == p.ID {
			s.items[i].Quantity += quantity
			s.items[i].UpdatedAt = now
			s.persist(ctx)
			return nil
		}
	}

	s.items = append(s.items, cart.LineItem{
		ID:        validate.GenerateID(),
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.Price,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.persist(ctx)
	return nil
}

// RemoveItem drops the product's line item. Removing an absent product is a
// no-op, not an error.
func (s *LocalStore) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(ctx, productID)
}

func (s *LocalStore) removeLocked(ctx context.Context, productID string) {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// UpdateQuantity replaces the product's quantity. A quantity of zero or less
// removes the line item; quantities are never stored non-positive. Unknown
// products are skipped silently.
func (s *LocalStore) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(ctx, productID)
		return
	}

	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
			s.items[i].UpdatedAt = time.Now().UTC()
			s.persist(ctx)
			return
		}
	}
}

// Clear empties the cart and deletes the persisted snapshot.
func (s *LocalStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.storage.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("clearing cart snapshot")
	}
}

// Quantity returns the stored quantity for the product, or 0 when absent.
func (s *LocalStore) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Snapshot returns a copy of the items with totals derived from them.
func (s *LocalStore) Snapshot() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]cart.LineItem, len(s.items))
	copy(items, s.items)
	return cart.Build(items)
}

func (s *LocalStore) persist(ctx context.Context) {
	if err := s.storage.Save(ctx, s.items); err != nil {
		s.log.WithError(err).Warn("persisting cart snapshot")
	}
}
