package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MiSArch/wishlist/internal/catalog"
	"github.com/MiSArch/wishlist/internal/domain"
	"github.com/MiSArch/wishlist/internal/repository"
	apperrors "github.com/MiSArch/wishlist/pkg/errors"
	"github.com/MiSArch/wishlist/pkg/pagination"
)

// maxCommitRetries bounds the optimistic-concurrency retry loop. After this
// many conflicted commits the Conflict surfaces to the caller.
const maxCommitRetries = 3

var commitConflicts = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "wishlist_commit_conflicts_total",
		Help: "Conditional writes that lost the version race and were retried",
	},
)

// EventPublisher emits domain events after a successful commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// CreateInput holds the parameters for creating a wishlist.
type CreateInput struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// AddItemInput holds the parameters for adding an item.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// WishlistService implements the business logic for wishlist operations.
type WishlistService struct {
	repo      repository.WishlistRepository
	publisher EventPublisher
	catalog   catalog.Checker
	logger    *slog.Logger
	now       func() time.Time
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(repo repository.WishlistRepository, publisher EventPublisher, checker catalog.Checker, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		repo:      repo,
		publisher: publisher,
		catalog:   checker,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create makes a new wishlist owned by the customer. Creation is explicit;
// item commands never create a wishlist implicitly.
func (s *WishlistService) Create(ctx context.Context, customerID, name string) (*domain.Wishlist, error) {
	w, ev, err := domain.New(uuid.New().String(), customerID, name, s.now())
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.CommitIfVersion(ctx, w, 0)
	if err != nil {
		return nil, fmt.Errorf("commit wishlist: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("wishlist already exists")
	}

	s.publish(ctx, ev)

	s.logger.InfoContext(ctx, "wishlist created",
		slog.String("wishlist_id", w.ID),
		slog.String("customer_id", customerID),
	)
	return w, nil
}

// Get returns the wishlist when it is live and owned by the customer.
func (s *WishlistService) Get(ctx context.Context, customerID, wishlistID string) (*domain.Wishlist, error) {
	w, err := s.authorized(ctx, customerID, wishlistID)
	if err != nil {
		return nil, err
	}
	if w.Deleted {
		return nil, apperrors.Gone("wishlist", wishlistID)
	}
	return w, nil
}

// List returns the customer's live wishlists, newest first.
func (s *WishlistService) List(ctx context.Context, customerID string, params pagination.Params) (pagination.Result[*domain.Wishlist], error) {
	lists, total, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return pagination.Result[*domain.Wishlist]{}, fmt.Errorf("list wishlists: %w", err)
	}
	return pagination.NewResult(lists, total, params), nil
}

// AddItem validates the catalog reference and adds or merges the item.
func (s *WishlistService) AddItem(ctx context.Context, customerID, wishlistID string, input AddItemInput) (*domain.Wishlist, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	exists, err := s.referenceExists(ctx, input)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.InvalidInput("referenced product does not exist in the catalog")
	}

	w, err := s.mutate(ctx, customerID, wishlistID, func(w *domain.Wishlist) (domain.Event, error) {
		return w.AddItem(input.ProductID, input.VariantID, input.Quantity, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to wishlist",
		slog.String("wishlist_id", wishlistID),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)
	return w, nil
}

// RemoveItem removes the matching item. Removing an absent item fails with
// NotFound.
func (s *WishlistService) RemoveItem(ctx context.Context, customerID, wishlistID, productID, variantID string) (*domain.Wishlist, error) {
	w, err := s.mutate(ctx, customerID, wishlistID, func(w *domain.Wishlist) (domain.Event, error) {
		return w.RemoveItem(productID, variantID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from wishlist",
		slog.String("wishlist_id", wishlistID),
		slog.String("product_id", productID),
	)
	return w, nil
}

// ChangeQuantity sets the quantity of the matching item.
func (s *WishlistService) ChangeQuantity(ctx context.Context, customerID, wishlistID, productID, variantID string, quantity int) (*domain.Wishlist, error) {
	w, err := s.mutate(ctx, customerID, wishlistID, func(w *domain.Wishlist) (domain.Event, error) {
		return w.ChangeQuantity(productID, variantID, quantity, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wishlist item quantity changed",
		slog.String("wishlist_id", wishlistID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return w, nil
}

// Delete soft-deletes the wishlist.
func (s *WishlistService) Delete(ctx context.Context, customerID, wishlistID string) error {
	_, err := s.mutate(ctx, customerID, wishlistID, func(w *domain.Wishlist) (domain.Event, error) {
		return w.Delete(s.now())
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "wishlist deleted",
		slog.String("wishlist_id", wishlistID),
		slog.String("customer_id", customerID),
	)
	return nil
}

// mutate runs one domain command under the optimistic-concurrency protocol:
// load, authorize, apply, conditional commit; on a lost race reload and
// reapply up to maxCommitRetries times, then surface Conflict. Publish runs
// after every successful commit.
func (s *WishlistService) mutate(ctx context.Context, customerID, wishlistID string, command func(*domain.Wishlist) (domain.Event, error)) (*domain.Wishlist, error) {
	var lastConflict error
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		w, err := s.authorized(ctx, customerID, wishlistID)
		if err != nil {
			return nil, err
		}

		expected := w.Version
		ev, err := command(w)
		if err != nil {
			return nil, err
		}

		ok, err := s.repo.CommitIfVersion(ctx, w, expected)
		if err != nil {
			return nil, fmt.Errorf("commit wishlist: %w", err)
		}
		if !ok {
			commitConflicts.Inc()
			lastConflict = apperrors.Conflict("wishlist was modified concurrently, please retry")
			s.logger.DebugContext(ctx, "commit lost version race, retrying",
				slog.String("wishlist_id", wishlistID),
				slog.Int("attempt", attempt+1),
			)
			continue
		}

		s.publish(ctx, ev)
		return w, nil
	}
	return nil, lastConflict
}

// authorized loads the aggregate and enforces ownership.
func (s *WishlistService) authorized(ctx context.Context, customerID, wishlistID string) (*domain.Wishlist, error) {
	if customerID == "" {
		return nil, apperrors.Unauthorized("customer identity is required")
	}

	w, err := s.repo.Load(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	if w.CustomerID != customerID {
		return nil, apperrors.Forbidden("wishlist belongs to another customer")
	}
	return w, nil
}

// referenceExists checks the most specific catalog reference the input carries.
func (s *WishlistService) referenceExists(ctx context.Context, input AddItemInput) (bool, error) {
	if input.VariantID != "" {
		return s.catalog.VariantExists(ctx, input.VariantID)
	}
	return s.catalog.ProductExists(ctx, input.ProductID)
}

// publish emits the event after a commit. Failures are logged and counted
// upstream, never rolled back; consumers tolerate the gap by deduplicating on
// (aggregate id, version).
func (s *WishlistService) publish(ctx context.Context, ev domain.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish wishlist event",
			slog.String("wishlist_id", ev.WishlistID),
			slog.String("kind", string(ev.Kind)),
			slog.Int("version", ev.Version),
			slog.String("error", err.Error()),
		)
	}
}
