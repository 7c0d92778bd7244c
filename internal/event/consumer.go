package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MiSArch/wishlist/internal/domain"
	"github.com/MiSArch/wishlist/internal/repository"
	pkgkafka "github.com/MiSArch/wishlist/pkg/kafka"
)

// Kafka topic constants for product domain events consumed to maintain the
// local catalog replica.
const (
	TopicProductCreated = "ecommerce.product.created"
	TopicProductUpdated = "ecommerce.product.updated"
	TopicProductDeleted = "ecommerce.product.deleted"
)

// ProductEventData is the payload of product.created and product.updated
// events. Only the fields the replica needs are decoded.
type ProductEventData struct {
	ID       string               `json:"id"`
	Variants []ProductVariantData `json:"variants"`
}

// ProductVariantData is a variant within product events.
type ProductVariantData struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Consumer applies product events to the local variant replica.
type Consumer struct {
	variants repository.ProductVariantRepository
	logger   *slog.Logger
}

// NewConsumer creates a new catalog event consumer.
func NewConsumer(variants repository.ProductVariantRepository, logger *slog.Logger) *Consumer {
	return &Consumer{
		variants: variants,
		logger:   logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	now := time.Now().UTC()
	for _, v := range data.Variants {
		variant := &domain.ProductVariant{
			ID:        v.ID,
			ProductID: data.ID,
			Available: v.Available,
			UpdatedAt: now,
		}
		if err := c.variants.Upsert(ctx, variant); err != nil {
			return fmt.Errorf("upsert variant %s from %s: %w", v.ID, event.EventType, err)
		}
	}

	c.logger.InfoContext(ctx, "replica updated from product event",
		slog.String("product_id", data.ID),
		slog.Int("variant_count", len(data.Variants)),
	)
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.variants.DeleteByProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete variants from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "replica pruned from product.deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}
