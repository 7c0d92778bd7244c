package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/MiSArch/wishlist/pkg/errors"
)

const testCustomerID = "8d2f4c4e-5b1a-4c89-9f1e-2a7b3c4d5e6f"

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestWishlist(t *testing.T) *Wishlist {
	t.Helper()
	w, _, err := New("wl-1", testCustomerID, "Birthday", testNow)
	require.NoError(t, err)
	return w
}

func TestNew(t *testing.T) {
	w, ev, err := New("wl-1", testCustomerID, "Birthday", testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, w.Version)
	assert.Equal(t, "Birthday", w.Name)
	assert.Empty(t, w.Items)
	assert.False(t, w.Deleted)
	assert.Equal(t, testNow, w.CreatedAt)

	assert.Equal(t, EventCreated, ev.Kind)
	assert.Equal(t, "wl-1", ev.WishlistID)
	assert.Equal(t, 1, ev.Version)
	assert.Equal(t, "Birthday", ev.Name)
}

func TestNew_EmptyName(t *testing.T) {
	_, _, err := New("wl-1", testCustomerID, "   ", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNew_MalformedCustomerID(t *testing.T) {
	_, _, err := New("wl-1", "not-a-uuid", "Birthday", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_Appends(t *testing.T) {
	w := newTestWishlist(t)

	ev, err := w.AddItem("P1", "V1", 2, testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, w.Version)
	require.Len(t, w.Items, 1)
	assert.Equal(t, 2, w.Items[0].Quantity)
	assert.Equal(t, EventItemAdded, ev.Kind)
	require.NotNil(t, ev.Item)
	assert.Equal(t, "P1", ev.Item.ProductID)
	assert.Equal(t, 2, ev.Version)
}

func TestAddItem_MergesDuplicate(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)

	ev, err := w.AddItem("P1", "", 3, testNow)
	require.NoError(t, err)

	// Never two entries for the same product reference.
	require.Len(t, w.Items, 1)
	assert.Equal(t, 5, w.Items[0].Quantity)
	assert.Equal(t, 3, w.Version)
	assert.Equal(t, EventItemQuantityChanged, ev.Kind)
}

func TestAddItem_DistinctVariantsAreDistinctItems(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.AddItem("P1", "V1", 1, testNow)
	require.NoError(t, err)
	_, err = w.AddItem("P1", "V2", 1, testNow)
	require.NoError(t, err)

	assert.Len(t, w.Items, 2)
}

func TestAddItem_MergeClampsQuantity(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.AddItem("P1", "", 990, testNow)
	require.NoError(t, err)
	_, err = w.AddItem("P1", "", 50, testNow)
	require.NoError(t, err)

	assert.Equal(t, MaxItemQuantity, w.Items[0].Quantity)
}

func TestAddItem_CapacityExceeded(t *testing.T) {
	w := newTestWishlist(t)
	for i := 0; i < MaxItems; i++ {
		_, err := w.AddItem(fmt.Sprintf("P%d", i), "", 1, testNow)
		require.NoError(t, err)
	}

	_, err := w.AddItem("P-overflow", "", 1, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	assert.Len(t, w.Items, MaxItems)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.AddItem("P1", "", 0, testNow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = w.AddItem("", "", 1, testNow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRemoveItem(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)

	ev, err := w.RemoveItem("P1", "", testNow)
	require.NoError(t, err)

	assert.Empty(t, w.Items)
	assert.Equal(t, 3, w.Version)
	assert.Equal(t, EventItemRemoved, ev.Kind)
	require.NotNil(t, ev.Item)
	assert.Equal(t, 2, ev.Item.Quantity)
}

func TestRemoveItem_AbsentIsNotFound(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.RemoveItem("P1", "", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	// The failed command must not advance the version.
	assert.Equal(t, 1, w.Version)
}

func TestRemoveItem_PreservesInsertionOrder(t *testing.T) {
	w := newTestWishlist(t)
	for _, p := range []string{"P1", "P2", "P3"} {
		_, err := w.AddItem(p, "", 1, testNow)
		require.NoError(t, err)
	}

	_, err := w.RemoveItem("P2", "", testNow)
	require.NoError(t, err)

	require.Len(t, w.Items, 2)
	assert.Equal(t, "P1", w.Items[0].ProductID)
	assert.Equal(t, "P3", w.Items[1].ProductID)
}

func TestChangeQuantity(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)

	ev, err := w.ChangeQuantity("P1", "", 7, testNow)
	require.NoError(t, err)

	assert.Equal(t, 7, w.Items[0].Quantity)
	assert.Equal(t, EventItemQuantityChanged, ev.Kind)
	assert.Equal(t, 3, ev.Version)
}

func TestChangeQuantity_ZeroIsRejected(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)

	_, err = w.ChangeQuantity("P1", "", 0, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 2, w.Items[0].Quantity)
}

func TestChangeQuantity_AbsentIsNotFound(t *testing.T) {
	w := newTestWishlist(t)

	_, err := w.ChangeQuantity("P1", "", 3, testNow)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChangeQuantity_Clamps(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 1, testNow)
	require.NoError(t, err)

	_, err = w.ChangeQuantity("P1", "", 5000, testNow)
	require.NoError(t, err)
	assert.Equal(t, MaxItemQuantity, w.Items[0].Quantity)
}

func TestDelete(t *testing.T) {
	w := newTestWishlist(t)

	ev, err := w.Delete(testNow)
	require.NoError(t, err)

	assert.True(t, w.Deleted)
	assert.Equal(t, 2, w.Version)
	assert.Equal(t, EventDeleted, ev.Kind)
}

func TestCommandsOnDeletedWishlistFailWithGone(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 1, testNow)
	require.NoError(t, err)
	_, err = w.Delete(testNow)
	require.NoError(t, err)

	_, err = w.AddItem("P2", "", 1, testNow)
	assert.ErrorIs(t, err, apperrors.ErrGone)

	_, err = w.RemoveItem("P1", "", testNow)
	assert.ErrorIs(t, err, apperrors.ErrGone)

	_, err = w.ChangeQuantity("P1", "", 2, testNow)
	assert.ErrorIs(t, err, apperrors.ErrGone)

	_, err = w.Delete(testNow)
	assert.ErrorIs(t, err, apperrors.ErrGone)
}

func TestItemCount(t *testing.T) {
	w := newTestWishlist(t)
	_, err := w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)
	_, err = w.AddItem("P2", "", 3, testNow)
	require.NoError(t, err)

	assert.Equal(t, 5, w.ItemCount())
}

// Lifecycle walkthrough: create, add twice with a merge, remove, then a second
// remove that must fail.
func TestWishlistLifecycle(t *testing.T) {
	w, _, err := New("wl-1", testCustomerID, "Birthday", testNow)
	require.NoError(t, err)
	require.Equal(t, 1, w.Version)

	_, err = w.AddItem("P1", "", 2, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Version)
	require.Len(t, w.Items, 1)
	assert.Equal(t, 2, w.Items[0].Quantity)

	_, err = w.AddItem("P1", "", 3, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Version)
	require.Len(t, w.Items, 1)
	assert.Equal(t, 5, w.Items[0].Quantity)

	_, err = w.RemoveItem("P1", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Version)
	assert.Empty(t, w.Items)

	_, err = w.RemoveItem("P1", "", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
