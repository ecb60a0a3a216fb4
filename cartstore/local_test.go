package cartstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmilosz/storecart/core/cart"
	"github.com/jmilosz/storecart/core/product"
	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newLocal(t *testing.T) (*LocalStore, *MemoryStorage) {
	t.Helper()
	storage := &MemoryStorage{}
	s, err := NewLocalStore(context.Background(), storage, testLogger())
	if err != nil {
		t.Fatalf("creating local store: %v", err)
	}
	return s, storage
}

// checkDerived verifies the totals invariant: after any operation the totals
// must equal the recomputed sums and no two items may share a product.
func checkDerived(t *testing.T, c cart.Cart) {
	t.Helper()

	var items int
	var amount int64
	seen := map[string]bool{}
	for _, it := range c.Items {
		if it.Quantity < 1 {
			t.Fatalf("item %s stored with quantity %d", it.ProductID, it.Quantity)
		}
		if seen[it.ProductID] {
			t.Fatalf("duplicate line item for product %s", it.ProductID)
		}
		seen[it.ProductID] = true
		items += it.Quantity
		amount += it.UnitPrice * int64(it.Quantity)
	}

	if c.TotalItems != items {
		t.Fatalf("TotalItems = %d, recomputed %d", c.TotalItems, items)
	}
	if c.TotalAmount != amount {
		t.Fatalf("TotalAmount = %d, recomputed %d", c.TotalAmount, amount)
	}
}

var (
	mug    = product.Product{ID: "d96487f2-4546-41f2-9c48-e4a17a8dcfd2", Name: "Mug", ImageURL: "/img/mug.png", Price: 1250}
	tshirt = product.Product{ID: "b3c8f2a1-73d8-4a20-94dd-4f41f64d7311", Name: "T-Shirt", ImageURL: "/img/tshirt.png", Price: 1999}
)

func TestLocalMergeOnAdd(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	if err := s.AddItem(ctx, mug, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.AddItem(ctx, mug, 3); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	checkDerived(t, snap)

	if len(snap.Items) != 1 {
		t.Fatalf("expected one line item, got %d", len(snap.Items))
	}
	if got := snap.Items[0].Quantity; got != 5 {
		t.Fatalf("expected merged quantity 5, got %d", got)
	}
	if got := s.Quantity(mug.ID); got != 5 {
		t.Fatalf("Quantity(%s) = %d, want 5", mug.ID, got)
	}
}

func TestLocalAddDefaultsQuantity(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	if err := s.AddItem(ctx, mug, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.AddItem(ctx, tshirt, -4); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	checkDerived(t, snap)
	if snap.TotalItems != 2 {
		t.Fatalf("expected both quantities coerced to 1, got total %d", snap.TotalItems)
	}
}

func TestLocalAddInvalidProduct(t *testing.T) {
	s, _ := newLocal(t)

	err := s.AddItem(context.Background(), product.Product{Name: "nameless"}, 1)
	if !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct, got %v", err)
	}

	if snap := s.Snapshot(); len(snap.Items) != 0 {
		t.Fatalf("invalid product must not be stored, got %d items", len(snap.Items))
	}
}

func TestLocalQuantityFloor(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	if err := s.AddItem(ctx, mug, 3); err != nil {
		t.Fatal(err)
	}

	s.UpdateQuantity(ctx, mug.ID, 0)
	snap := s.Snapshot()
	checkDerived(t, snap)
	if len(snap.Items) != 0 {
		t.Fatal("quantity 0 must remove the item")
	}

	if err := s.AddItem(ctx, mug, 3); err != nil {
		t.Fatal(err)
	}
	s.UpdateQuantity(ctx, mug.ID, -2)
	if len(s.Snapshot().Items) != 0 {
		t.Fatal("negative quantity must remove the item")
	}
}

func TestLocalUpdateReplacesQuantity(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	if err := s.AddItem(ctx, mug, 3); err != nil {
		t.Fatal(err)
	}

	s.UpdateQuantity(ctx, mug.ID, 7)
	if got := s.Quantity(mug.ID); got != 7 {
		t.Fatalf("expected replacement to 7, got %d", got)
	}

	// Unknown product is a silent skip.
	s.UpdateQuantity(ctx, tshirt.ID, 4)
	snap := s.Snapshot()
	checkDerived(t, snap)
	if len(snap.Items) != 1 {
		t.Fatalf("update of unknown product must not create items, got %d", len(snap.Items))
	}
}

func TestLocalRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	if err := s.AddItem(ctx, mug, 1); err != nil {
		t.Fatal(err)
	}

	before := s.Snapshot()
	s.RemoveItem(ctx, "00000000-0000-0000-0000-000000000000")
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("removing unknown product changed state:\n%s", diff)
	}

	s.RemoveItem(ctx, mug.ID)
	s.RemoveItem(ctx, mug.ID)
	snap := s.Snapshot()
	checkDerived(t, snap)
	if len(snap.Items) != 0 {
		t.Fatal("expected empty cart after removal")
	}
}

func TestLocalClearTerminal(t *testing.T) {
	ctx := context.Background()
	s, storage := newLocal(t)

	if err := s.AddItem(ctx, mug, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.AddItem(ctx, tshirt, 1); err != nil {
		t.Fatal(err)
	}

	s.Clear(ctx)

	snap := s.Snapshot()
	if len(snap.Items) != 0 || snap.TotalItems != 0 || snap.TotalAmount != 0 {
		t.Fatalf("clear must zero everything, got %+v", snap)
	}

	if _, err := storage.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("clear must delete the persisted snapshot, got %v", err)
	}
}

func TestLocalInvariantOverSequence(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocal(t)

	ops := []func() error{
		func() error { return s.AddItem(ctx, mug, 2) },
		func() error { return s.AddItem(ctx, tshirt, 1) },
		func() error { s.UpdateQuantity(ctx, mug.ID, 9); return nil },
		func() error { return s.AddItem(ctx, mug, 1) },
		func() error { s.RemoveItem(ctx, tshirt.ID); return nil },
		func() error { s.UpdateQuantity(ctx, tshirt.ID, 5); return nil },
		func() error { return s.AddItem(ctx, tshirt, 4) },
		func() error { s.UpdateQuantity(ctx, mug.ID, 0); return nil },
	}

	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("operation %d: %v", i, err)
		}
		checkDerived(t, s.Snapshot())
	}
}

func TestLocalRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := &MemoryStorage{}

	s1, err := NewLocalStore(ctx, storage, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.AddItem(ctx, mug, 2); err != nil {
		t.Fatal(err)
	}
	if err := s1.AddItem(ctx, tshirt, 1); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same storage simulates a process restart.
	s2, err := NewLocalStore(ctx, storage, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	got := s2.Snapshot()
	checkDerived(t, got)
	if diff := cmp.Diff(s1.Snapshot(), got); diff != "" {
		t.Fatalf("restored cart differs:\n%s", diff)
	}
}
