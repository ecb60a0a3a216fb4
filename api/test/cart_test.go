package test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jmilosz/storecart/cartstore"
	"github.com/jmilosz/storecart/core/cart"
	"github.com/jmilosz/storecart/core/product"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func findItem(t *testing.T, items []cart.LineItem, productID string) cart.LineItem {
	t.Helper()
	for _, it := range items {
		if it.ProductID == productID {
			return it
		}
	}
	t.Fatalf("no line item for product %s", productID)
	return cart.LineItem{}
}

// TestCartFlow drives the synced store against the real API end to end:
// merge-on-add, quantity replacement, idempotent removal, terminal clear.
func TestCartFlow(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	mug := env.createProductOK(t, "mug", 1250)
	tshirt := env.createProductOK(t, "tshirt", 1999)

	ctx := context.Background()
	client := cartstore.NewClient(env.URL, cartstore.StaticToken(env.UserToken), env.Server.Client())
	store := cartstore.NewSyncedStore(ctx, client, &cartstore.MemoryStorage{}, testLogger())

	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	if snap := store.Snapshot(); len(snap.Items) != 0 {
		t.Fatalf("expected an empty cart, got %d items", len(snap.Items))
	}

	// Adding the same product twice merges into one line item.
	if err := store.AddItem(ctx, mug.ID, 2); err != nil {
		t.Fatal(err)
	}
	if err := store.AddItem(ctx, mug.ID, 3); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("expected one merged line item, got %d", len(snap.Items))
	}
	mugLine := findItem(t, snap.Items, mug.ID)
	if mugLine.Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", mugLine.Quantity)
	}
	if mugLine.UnitPrice != 1250 || mugLine.Name != "mug" {
		t.Fatalf("product snapshot not captured: %+v", mugLine)
	}

	// Zero quantity on add defaults to one.
	if err := store.AddItem(ctx, tshirt.ID, 0); err != nil {
		t.Fatal(err)
	}

	snap = store.Snapshot()
	if snap.TotalItems != 6 {
		t.Fatalf("TotalItems = %d, want 6", snap.TotalItems)
	}
	if want := int64(5*1250 + 1999); snap.TotalAmount != want {
		t.Fatalf("TotalAmount = %d, want %d", snap.TotalAmount, want)
	}

	// Quantity update is a replacement, not an increment.
	if err := store.UpdateQuantity(ctx, mugLine.ID, 7); err != nil {
		t.Fatal(err)
	}
	snap = store.Snapshot()
	if got := findItem(t, snap.Items, mug.ID).Quantity; got != 7 {
		t.Fatalf("expected quantity 7 after update, got %d", got)
	}

	// Removing twice succeeds both times.
	shirtLine := findItem(t, snap.Items, tshirt.ID)
	if err := store.RemoveItem(ctx, shirtLine.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.RemoveItem(ctx, shirtLine.ID); err != nil {
		t.Fatalf("second removal must be idempotent, got %v", err)
	}
	if snap := store.Snapshot(); len(snap.Items) != 1 {
		t.Fatalf("expected only the mug left, got %d items", len(snap.Items))
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	snap = store.Snapshot()
	if len(snap.Items) != 0 || snap.TotalItems != 0 || snap.TotalAmount != 0 {
		t.Fatalf("clear must zero everything, got %+v", snap)
	}

	var items []cart.LineItem
	env.Do(t, env.UserToken, http.MethodGet, "/cart", nil, &items, http.StatusOK)
	if len(items) != 0 {
		t.Fatalf("server still holds %d items after clear", len(items))
	}
}

func TestCartRejectsUnknownProduct(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	client := cartstore.NewClient(env.URL, cartstore.StaticToken(env.UserToken), env.Server.Client())
	store := cartstore.NewSyncedStore(ctx, client, nil, testLogger())

	err = store.AddItem(ctx, "11111111-2222-3333-4444-555555555555", 1)
	if !errors.Is(err, cartstore.ErrRejected) {
		t.Fatalf("expected ErrRejected for an unknown product, got %v", err)
	}
	if snap := store.Snapshot(); len(snap.Items) != 0 {
		t.Fatalf("failed add must not change state, got %d items", len(snap.Items))
	}
}

func TestCartServerRejectsNonPositiveQuantity(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatal(err)
	}

	p := env.createProductOK(t, "poster", 500)

	ctx := context.Background()
	client := cartstore.NewClient(env.URL, cartstore.StaticToken(env.UserToken), env.Server.Client())
	store := cartstore.NewSyncedStore(ctx, client, nil, testLogger())

	if err := store.AddItem(ctx, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	itemID := store.Snapshot().Items[0].ID

	// The server enforces the same contract the store does.
	if err := client.Update(ctx, itemID, 0); !errors.Is(err, cartstore.ErrRejected) {
		t.Fatalf("expected the server to reject quantity 0, got %v", err)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	// No token at all.
	env.Do(t, "", http.MethodGet, "/cart", nil, nil, http.StatusUnauthorized)

	// A token the verifier does not know.
	client := cartstore.NewClient(env.URL, cartstore.StaticToken("forged"), env.Server.Client())
	store := cartstore.NewSyncedStore(ctx, client, nil, testLogger())
	if err := store.Refresh(ctx); !errors.Is(err, cartstore.ErrAuth) {
		t.Fatalf("expected ErrAuth for a rejected credential, got %v", err)
	}
}

func TestCartsAreIsolatedByUser(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatal(err)
	}

	p := env.createProductOK(t, "sticker", 300)

	env.Do(t, env.UserToken, http.MethodPost, "/cart", cart.ItemNew{ProductID: p.ID, Quantity: 2}, nil, http.StatusNoContent)

	// The admin's cart stays empty.
	var items []cart.LineItem
	env.Do(t, env.AdminToken, http.MethodGet, "/cart", nil, &items, http.StatusOK)
	if len(items) != 0 {
		t.Fatalf("carts leaked across users: %d items", len(items))
	}
}

func TestProductAdminOnly(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatal(err)
	}

	pnew := product.ProductNew{Name: "n", Description: "d", ImageURL: "/i.png", Price: 100}
	env.Do(t, env.UserToken, http.MethodPost, "/products", pnew, nil, http.StatusUnauthorized)

	created := env.createProductOK(t, "keychain", 450)

	var got product.Product
	env.Do(t, "", http.MethodGet, "/products/"+created.ID, nil, &got, http.StatusOK)
	if got.ID != created.ID || got.Price != 450 {
		t.Fatalf("unexpected product: %+v", got)
	}

	var list []product.Product
	env.Do(t, "", http.MethodGet, "/products", nil, &list, http.StatusOK)
	if len(list) != 1 {
		t.Fatalf("expected one product in the catalog, got %d", len(list))
	}
}
