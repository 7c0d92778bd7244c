package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MiSArch/wishlist/internal/domain"
	apperrors "github.com/MiSArch/wishlist/pkg/errors"
	"github.com/MiSArch/wishlist/pkg/pagination"
)

// DB is the subset of pgxpool.Pool the repositories need. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WishlistRepository stores wishlist aggregates as JSONB documents next to a
// relational version column used for the conditional write.
type WishlistRepository struct {
	db DB
}

// NewWishlistRepository creates a PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Load returns the aggregate by ID, soft-deleted included.
func (r *WishlistRepository) Load(ctx context.Context, id string) (*domain.Wishlist, error) {
	query := `SELECT doc FROM wishlists WHERE id = $1`

	var doc []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", id)
		}
		return nil, fmt.Errorf("load wishlist: %w", err)
	}

	var w domain.Wishlist
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, fmt.Errorf("unmarshal wishlist %s: %w", id, err)
	}
	return &w, nil
}

// CommitIfVersion performs the compare-and-swap write in a single round trip.
// expectedVersion 0 inserts a fresh aggregate; anything else is a conditional
// update keyed on (id, expectedVersion).
func (r *WishlistRepository) CommitIfVersion(ctx context.Context, w *domain.Wishlist, expectedVersion int) (bool, error) {
	doc, err := json.Marshal(w)
	if err != nil {
		return false, fmt.Errorf("marshal wishlist %s: %w", w.ID, err)
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO wishlists (id, customer_id, version, deleted, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`

		ct, err := r.db.Exec(ctx, query,
			w.ID, w.CustomerID, w.Version, w.Deleted, doc, w.CreatedAt, w.UpdatedAt)
		if err != nil {
			return false, fmt.Errorf("insert wishlist: %w", err)
		}
		return ct.RowsAffected() == 1, nil
	}

	query := `
		UPDATE wishlists
		SET version = $1, deleted = $2, doc = $3, updated_at = $4
		WHERE id = $5 AND version = $6`

	ct, err := r.db.Exec(ctx, query,
		w.Version, w.Deleted, doc, w.UpdatedAt, w.ID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("update wishlist: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ListByCustomer returns the customer's live wishlists, newest first, plus
// the total count.
func (r *WishlistRepository) ListByCustomer(ctx context.Context, customerID string, params pagination.Params) ([]*domain.Wishlist, int, error) {
	countQuery := `SELECT COUNT(*) FROM wishlists WHERE customer_id = $1 AND deleted = FALSE`

	var total int
	if err := r.db.QueryRow(ctx, countQuery, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wishlists: %w", err)
	}

	query := `
		SELECT doc
		FROM wishlists
		WHERE customer_id = $1 AND deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, customerID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close()

	var lists []*domain.Wishlist
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, fmt.Errorf("scan wishlist row: %w", err)
		}
		var w domain.Wishlist
		if err := json.Unmarshal(doc, &w); err != nil {
			return nil, 0, fmt.Errorf("unmarshal wishlist: %w", err)
		}
		lists = append(lists, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	if lists == nil {
		lists = []*domain.Wishlist{}
	}
	return lists, total, nil
}
