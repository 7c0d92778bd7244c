package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/MiSArch/wishlist/pkg/errors"
)

// Wishlist capacity limits.
const (
	// MaxItems is the maximum number of distinct items in a wishlist.
	MaxItems = 500
	// MaxItemQuantity is the maximum quantity for a single item. Merges that
	// would exceed it are clamped, not rejected.
	MaxItemQuantity = 999
)

// Wishlist is the aggregate root. All mutations go through its command
// methods; each committed command increments Version by exactly 1.
type Wishlist struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Items      []Item    `json:"items"`
	Version    int       `json:"version"`
	Deleted    bool      `json:"deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Item is a value object owned by exactly one wishlist. Product and variant
// identifiers are opaque references into the catalog.
type Item struct {
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// EventKind identifies the state transition a domain event records.
type EventKind string

const (
	EventCreated             EventKind = "created"
	EventItemAdded           EventKind = "item_added"
	EventItemRemoved         EventKind = "item_removed"
	EventItemQuantityChanged EventKind = "item_quantity_changed"
	EventDeleted             EventKind = "deleted"
)

// Event is an immutable record of a committed state transition. Version is
// the aggregate version at emission; consumers deduplicate on (WishlistID,
// Version).
type Event struct {
	Kind       EventKind `json:"kind"`
	WishlistID string    `json:"wishlist_id"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name,omitempty"`
	Item       *Item     `json:"item,omitempty"`
	Version    int       `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New creates a wishlist at version 1 and returns the Created event.
// Commands take the clock explicitly so the aggregate stays deterministic.
func New(id, customerID, name string, now time.Time) (*Wishlist, Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Event{}, apperrors.InvalidInput("wishlist name must not be empty")
	}
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, Event{}, apperrors.InvalidInput("customer id must be a valid UUID")
	}

	w := &Wishlist{
		ID:         id,
		CustomerID: customerID,
		Name:       name,
		Items:      []Item{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return w, w.event(EventCreated, nil, now), nil
}

// AddItem appends a new item, or merges quantity into an existing item with
// the same product and variant reference. Merged quantities are clamped at
// MaxItemQuantity. A new distinct item beyond MaxItems fails with
// CapacityExceeded.
func (w *Wishlist) AddItem(productID, variantID string, quantity int, now time.Time) (Event, error) {
	if err := w.live(); err != nil {
		return Event{}, err
	}
	if productID == "" {
		return Event{}, apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return Event{}, apperrors.InvalidInput("quantity must be at least 1")
	}

	if i := w.findItem(productID, variantID); i >= 0 {
		merged := w.Items[i].Quantity + quantity
		if merged > MaxItemQuantity {
			merged = MaxItemQuantity
		}
		w.Items[i].Quantity = merged
		w.touch(now)
		return w.event(EventItemQuantityChanged, &w.Items[i], now), nil
	}

	if len(w.Items) >= MaxItems {
		return Event{}, apperrors.CapacityExceeded(
			fmt.Sprintf("wishlist must not contain more than %d items", MaxItems))
	}

	if quantity > MaxItemQuantity {
		quantity = MaxItemQuantity
	}
	item := Item{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		AddedAt:   now,
	}
	w.Items = append(w.Items, item)
	w.touch(now)
	return w.event(EventItemAdded, &item, now), nil
}

// RemoveItem removes the matching item. Removing an absent item fails with
// NotFound; it is deliberately not idempotent so clients learn the item was
// already gone.
func (w *Wishlist) RemoveItem(productID, variantID string, now time.Time) (Event, error) {
	if err := w.live(); err != nil {
		return Event{}, err
	}

	i := w.findItem(productID, variantID)
	if i < 0 {
		return Event{}, apperrors.NotFound("wishlist item", productID)
	}

	removed := w.Items[i]
	w.Items = append(w.Items[:i], w.Items[i+1:]...)
	w.touch(now)
	return w.event(EventItemRemoved, &removed, now), nil
}

// ChangeQuantity sets the quantity of the matching item. Zero is rejected as
// ambiguous; callers that want the item gone must call RemoveItem. Values
// above MaxItemQuantity are clamped.
func (w *Wishlist) ChangeQuantity(productID, variantID string, quantity int, now time.Time) (Event, error) {
	if err := w.live(); err != nil {
		return Event{}, err
	}
	if quantity == 0 {
		return Event{}, apperrors.InvalidInput("quantity 0 is ambiguous, remove the item instead")
	}
	if quantity < 0 {
		return Event{}, apperrors.InvalidInput("quantity must be at least 1")
	}

	i := w.findItem(productID, variantID)
	if i < 0 {
		return Event{}, apperrors.NotFound("wishlist item", productID)
	}

	if quantity > MaxItemQuantity {
		quantity = MaxItemQuantity
	}
	w.Items[i].Quantity = quantity
	w.touch(now)
	return w.event(EventItemQuantityChanged, &w.Items[i], now), nil
}

// Delete soft-deletes the wishlist. Any command against a deleted wishlist
// fails with Gone, including a second Delete.
func (w *Wishlist) Delete(now time.Time) (Event, error) {
	if err := w.live(); err != nil {
		return Event{}, err
	}

	w.Deleted = true
	w.touch(now)
	return w.event(EventDeleted, nil, now), nil
}

// ItemCount returns the total quantity across all items.
func (w *Wishlist) ItemCount() int {
	var count int
	for _, item := range w.Items {
		count += item.Quantity
	}
	return count
}

func (w *Wishlist) live() error {
	if w.Deleted {
		return apperrors.Gone("wishlist", w.ID)
	}
	return nil
}

// findItem returns the index of the item matching the product and variant
// reference, or -1.
func (w *Wishlist) findItem(productID, variantID string) int {
	for i := range w.Items {
		if w.Items[i].ProductID == productID && w.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

func (w *Wishlist) touch(now time.Time) {
	w.Version++
	w.UpdatedAt = now
}

func (w *Wishlist) event(kind EventKind, item *Item, now time.Time) Event {
	e := Event{
		Kind:       kind,
		WishlistID: w.ID,
		CustomerID: w.CustomerID,
		Version:    w.Version,
		OccurredAt: now,
	}
	if kind == EventCreated {
		e.Name = w.Name
	}
	if item != nil {
		snapshot := *item
		e.Item = &snapshot
	}
	return e
}
