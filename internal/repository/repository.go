package repository

import (
	"context"

	"github.com/MiSArch/wishlist/internal/domain"
	"github.com/MiSArch/wishlist/pkg/pagination"
)

// WishlistRepository persists wishlist aggregates. Each aggregate is a single
// document; there are no cross-aggregate transactions.
type WishlistRepository interface {
	// Load returns the aggregate by ID, including soft-deleted ones (the
	// service maps those to Gone). Fails with NotFound when absent.
	// Every call must return a freshly constructed aggregate that shares no
	// state with previous results: callers mutate it in place before a
	// conditional commit that may lose, and a cached or aliased aggregate
	// would leak those uncommitted mutations into the next attempt.
	Load(ctx context.Context, id string) (*domain.Wishlist, error)

	// CommitIfVersion atomically writes the aggregate if the stored version
	// still equals expectedVersion. expectedVersion 0 means the aggregate is
	// new and is inserted. Returns ok=false when another writer advanced the
	// version first; the caller reloads and reapplies.
	CommitIfVersion(ctx context.Context, w *domain.Wishlist, expectedVersion int) (bool, error)

	// ListByCustomer returns the customer's wishlists, newest first,
	// excluding soft-deleted ones, plus the total count.
	ListByCustomer(ctx context.Context, customerID string, params pagination.Params) ([]*domain.Wishlist, int, error)
}

// ProductVariantRepository maintains the local replica of catalog product
// variants, kept current by the catalog event consumer.
type ProductVariantRepository interface {
	Upsert(ctx context.Context, v *domain.ProductVariant) error
	Delete(ctx context.Context, id string) error
	DeleteByProduct(ctx context.Context, productID string) error
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByProduct(ctx context.Context, productID string) (bool, error)
}
