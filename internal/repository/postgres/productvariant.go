package postgres

import (
	"context"
	"fmt"

	"github.com/MiSArch/wishlist/internal/domain"
)

// ProductVariantRepository stores the local catalog replica used for the
// AddItem existence fast path.
type ProductVariantRepository struct {
	db DB
}

// NewProductVariantRepository creates a PostgreSQL-backed replica repository.
func NewProductVariantRepository(db DB) *ProductVariantRepository {
	return &ProductVariantRepository{db: db}
}

// Upsert writes the variant, replacing any existing row. Catalog events can
// arrive out of order across restarts; last write wins per variant.
func (r *ProductVariantRepository) Upsert(ctx context.Context, v *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, available, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET product_id = EXCLUDED.product_id,
		    available = EXCLUDED.available,
		    updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, v.ID, v.ProductID, v.Available, v.UpdatedAt); err != nil {
		return fmt.Errorf("upsert product variant: %w", err)
	}
	return nil
}

// Delete removes the variant from the replica. Deleting an unknown variant is
// a no-op; the replica may simply never have seen it.
func (r *ProductVariantRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM product_variants WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete product variant: %w", err)
	}
	return nil
}

// DeleteByProduct removes every variant of the given product, used when the
// whole product is retired from the catalog.
func (r *ProductVariantRepository) DeleteByProduct(ctx context.Context, productID string) error {
	query := `DELETE FROM product_variants WHERE product_id = $1`

	if _, err := r.db.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("delete product variants: %w", err)
	}
	return nil
}

// Exists reports whether the variant is known and available.
func (r *ProductVariantRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM product_variants WHERE id = $1 AND available = TRUE)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product variant exists: %w", err)
	}
	return exists, nil
}

// ExistsByProduct reports whether any available variant of the product is known.
func (r *ProductVariantRepository) ExistsByProduct(ctx context.Context, productID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM product_variants WHERE product_id = $1 AND available = TRUE)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}
