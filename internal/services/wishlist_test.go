package services

import (
	"context"
	"testing"

	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWishlist(t *testing.T, store storage.Storage) (*WishlistService, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return NewWishlistService(context.Background(), testState(t, store), n), n
}

func entry(id int64, name string) models.WishlistEntry {
	return models.WishlistEntry{ProductID: id, Name: name, Price: 10, Image: "/img/x.jpg"}
}

func TestAddToWishlistRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	w, n := newTestWishlist(t, storage.NewMemory())

	require.NoError(t, w.AddToWishlist(ctx, entry(5, "Honey")))
	assert.Equal(t, notify.Notice{Level: notify.LevelSuccess, Message: "Honey added to wishlist"}, n.last())

	err := w.AddToWishlist(ctx, entry(5, "Honey"))
	assert.ErrorIs(t, err, ErrAlreadyInWishlist)
	assert.Equal(t, notify.Notice{Level: notify.LevelError, Message: "Item already in wishlist"}, n.last())

	assert.Equal(t, 1, w.TotalItems())
	assert.Len(t, w.Items(), 1)
}

func TestAddToWishlistRejectsInvalidID(t *testing.T) {
	w, _ := newTestWishlist(t, storage.NewMemory())
	assert.ErrorIs(t, w.AddToWishlist(context.Background(), entry(0, "Ghost")), ErrInvalidItem)
	assert.Zero(t, w.TotalItems())
}

func TestWishlistRemoveAndContains(t *testing.T) {
	ctx := context.Background()
	w, n := newTestWishlist(t, storage.NewMemory())
	require.NoError(t, w.AddToWishlist(ctx, entry(1, "Apples")))
	require.NoError(t, w.AddToWishlist(ctx, entry(2, "Bananas")))

	assert.True(t, w.IsInWishlist(1))
	assert.True(t, w.RemoveFromWishlist(ctx, 1))
	assert.Equal(t, "Apples removed from wishlist", n.last().Message)
	assert.False(t, w.IsInWishlist(1))
	assert.False(t, w.RemoveFromWishlist(ctx, 1))

	// a removed product can be liked again
	require.NoError(t, w.AddToWishlist(ctx, entry(1, "Apples")))
	assert.Equal(t, []int64{2, 1}, wishlistIDs(w.Items()))
}

func TestClearWishlist(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	w, _ := newTestWishlist(t, store)
	require.NoError(t, w.AddToWishlist(ctx, entry(1, "Apples")))

	w.ClearWishlist(ctx)
	assert.Zero(t, w.TotalItems())
	assert.False(t, w.IsInWishlist(1))

	reloaded, _ := newTestWishlist(t, store)
	assert.Zero(t, reloaded.TotalItems())
}

func TestWishlistPersistsAndDedupesOnLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	w, _ := newTestWishlist(t, store)
	require.NoError(t, w.AddToWishlist(ctx, entry(3, "Mangoes")))
	require.NoError(t, w.AddToWishlist(ctx, entry(8, "Milk")))

	reloaded, _ := newTestWishlist(t, store)
	assert.Equal(t, w.Items(), reloaded.Items())
	assert.True(t, reloaded.IsInWishlist(8))

	require.NoError(t, store.Save(ctx, keyWishlist, []byte(`[{"product_id":4},{"product_id":4},{"product_id":-1}]`)))
	reloaded, _ = newTestWishlist(t, store)
	assert.Equal(t, []int64{4}, wishlistIDs(reloaded.Items()))
}

func TestWishlistStorageFailure(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWishlist(t, failingStorage{})
	assert.Zero(t, w.TotalItems())

	require.NoError(t, w.AddToWishlist(ctx, entry(1, "Apples")))
	assert.True(t, w.IsInWishlist(1))
}

func wishlistIDs(entries []models.WishlistEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ProductID
	}
	return out
}
