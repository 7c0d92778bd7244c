package domain

import "time"

// ProductVariant is a local replica row of a catalog product variant,
// maintained from catalog events. Only what AddItem validation needs is kept.
type ProductVariant struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}
