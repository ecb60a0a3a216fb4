package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmilosz/storecart/core/cart"
	"github.com/sirupsen/logrus"
)

// SyncedStore is the authenticated cart: the server owns the truth and the
// store keeps a cache of the last list it fetched. Every mutation is sent to
// the service and followed by a full refetch; nothing is predicted locally.
// A failed call leaves the cached items exactly as they were, records the
// error for the UI, and is not retried.
//
// Mutations are serialized: each one holds the mutation lock across its
// request and the refetch that reconciles it, so rapid overlapping calls
// cannot interleave their effects. Refetch results carry a sequence number
// taken at dispatch, and a result older than the newest applied one is
// discarded instead of overwriting fresher state.
type SyncedStore struct {
	client  *Client
	storage Storage
	log     logrus.FieldLogger

	muts sync.Mutex // serializes mutations end to end

	mu       sync.Mutex // guards everything below
	items    []cart.LineItem
	inflight int
	lastErr  error
	seq      uint64
	applied  uint64
}

// NewSyncedStore builds a store over the given client. storage is optional;
// when present, the cached snapshot is loaded immediately so the UI has
// something to paint before the first Refresh lands.
func NewSyncedStore(ctx context.Context, client *Client, storage Storage, log logrus.FieldLogger) *SyncedStore {
	s := &SyncedStore{
		client:  client,
		storage: storage,
		log:     log,
	}

	if storage != nil {
		items, err := storage.Load(ctx)
		switch {
		case err == nil:
			s.items = items
		case errors.Is(err, ErrNoSnapshot):
		default:
			log.WithError(err).Warn("discarding cached cart snapshot")
		}
	}

	return s
}

// Refresh fetches the authoritative item list and replaces the cache. It is
// called directly on session start and login, and internally after every
// mutation.
func (s *SyncedStore) Refresh(ctx context.Context) error {
	seq := s.nextSeq()

	s.begin()
	items, err := s.client.List(ctx)
	if err != nil {
		s.finish(err)
		return err
	}

	s.apply(ctx, seq, items)
	s.finish(nil)
	return nil
}

// AddItem asks the service to add the product, then refetches. Quantities
// below 1 default to 1, matching the add semantics of the local store.
func (s *SyncedStore) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	return s.mutate(ctx, func(ctx context.Context) error {
		return s.client.Add(ctx, productID, quantity)
	})
}

// UpdateQuantity replaces a line item's quantity, then refetches. A
// non-positive quantity is a validation error, not an implicit removal:
// callers remove items explicitly. Updating an item the server no longer has
// is skipped silently.
func (s *SyncedStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 1 {
		err := fmt.Errorf("updating item[%s] to %d: %w", itemID, quantity, ErrInvalidQuantity)
		s.record(err)
		return err
	}

	return s.mutate(ctx, func(ctx context.Context) error {
		return s.client.Update(ctx, itemID, quantity)
	})
}

// RemoveItem deletes a line item, then refetches. Removing an item the
// server no longer has counts as success: the end state matches the intent.
func (s *SyncedStore) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.client.Remove(ctx, itemID)
	})
}

// Clear empties the cart on the server and, on success, locally. Clearing is
// terminal, so no refetch round-trip follows.
func (s *SyncedStore) Clear(ctx context.Context) error {
	s.muts.Lock()
	defer s.muts.Unlock()

	seq := s.nextSeq()

	s.begin()
	if err := s.client.Clear(ctx); err != nil {
		s.finish(err)
		return err
	}

	s.apply(ctx, seq, nil)
	s.finish(nil)
	return nil
}

// Reset drops the local cache and the persisted snapshot without contacting
// the server. Used on logout, when the cart no longer belongs to the session.
func (s *SyncedStore) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.lastErr = nil
	if s.storage != nil {
		if err := s.storage.Clear(ctx); err != nil {
			s.log.WithError(err).Warn("clearing cached cart snapshot")
		}
	}
}

// Snapshot returns a copy of the cached items with totals derived from them.
func (s *SyncedStore) Snapshot() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]cart.LineItem, len(s.items))
	copy(items, s.items)
	return cart.Build(items)
}

// Loading reports whether a call to the service is in flight, so the UI can
// disable controls and avoid duplicate submissions.
func (s *SyncedStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the failure recorded by the most recent operation, or nil
// after a success.
func (s *SyncedStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// mutate runs one mutation under the queue lock: send the request, then
// refetch and reconcile. A soft miss (the target item is already gone) is
// treated as success and still reconciled.
func (s *SyncedStore) mutate(ctx context.Context, op func(ctx context.Context) error) error {
	s.muts.Lock()
	defer s.muts.Unlock()

	s.begin()
	if err := op(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		s.finish(err)
		return err
	}

	seq := s.nextSeq()
	items, err := s.client.List(ctx)
	if err != nil {
		s.finish(err)
		return err
	}

	s.apply(ctx, seq, items)
	s.finish(nil)
	return nil
}

func (s *SyncedStore) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// apply installs a refetch result unless a newer one already landed.
func (s *SyncedStore) apply(ctx context.Context, seq uint64, items []cart.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.applied {
		s.log.WithField("seq", seq).Debug("discarding stale cart refetch")
		return
	}

	s.applied = seq
	s.items = items

	if s.storage != nil {
		if err := s.storage.Save(ctx, items); err != nil {
			s.log.WithError(err).Warn("caching cart snapshot")
		}
	}
}

func (s *SyncedStore) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *SyncedStore) finish(err error) {
	s.mu.Lock()
	s.inflight--
	s.lastErr = err
	s.mu.Unlock()
}

func (s *SyncedStore) record(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
