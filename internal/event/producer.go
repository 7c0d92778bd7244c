package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MiSArch/wishlist/internal/domain"
	pkgkafka "github.com/MiSArch/wishlist/pkg/kafka"
	"github.com/MiSArch/wishlist/pkg/logger"
)

// Kafka topic constants for wishlist domain events.
const (
	TopicWishlistCreated     = "ecommerce.wishlist.created"
	TopicWishlistUpdated     = "ecommerce.wishlist.updated"
	TopicWishlistItemAdded   = "ecommerce.wishlist.item_added"
	TopicWishlistItemRemoved = "ecommerce.wishlist.item_removed"
	TopicWishlistDeleted     = "ecommerce.wishlist.deleted"
)

// Aggregate type constant.
const AggregateTypeWishlist = "wishlist"

// Source identifier for events originating from this service.
const SourceWishlistService = "wishlist-service"

// WishlistEventData is the payload carried by every wishlist event. Item is
// only set for item-level transitions.
type WishlistEventData struct {
	WishlistID string           `json:"wishlist_id"`
	CustomerID string           `json:"customer_id"`
	Name       string           `json:"name,omitempty"`
	Item       *ItemData        `json:"item,omitempty"`
	Kind       domain.EventKind `json:"kind"`
	Version    int              `json:"version"`
}

// ItemData is the item snapshot within wishlist events.
type ItemData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// EventWriter writes an event envelope to a topic. *pkgkafka.Producer is the
// production implementation.
type EventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes wishlist domain events to Kafka. Publish is called only
// after a successful commit; failures are logged and counted, never rolled
// back.
type Producer struct {
	writer EventWriter
	logger *slog.Logger
}

// NewProducer creates a new event producer for the wishlist service.
func NewProducer(writer EventWriter, logger *slog.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// topicFor maps a domain event kind to its Kafka topic.
func topicFor(kind domain.EventKind) (string, error) {
	switch kind {
	case domain.EventCreated:
		return TopicWishlistCreated, nil
	case domain.EventItemAdded:
		return TopicWishlistItemAdded, nil
	case domain.EventItemRemoved:
		return TopicWishlistItemRemoved, nil
	case domain.EventItemQuantityChanged:
		return TopicWishlistUpdated, nil
	case domain.EventDeleted:
		return TopicWishlistDeleted, nil
	default:
		return "", fmt.Errorf("unknown event kind %q", kind)
	}
}

// Publish emits the domain event. The envelope version is the aggregate
// version at emission, so consumers deduplicate on (aggregate_id, version).
// Publication runs on a detached context: a caller that disconnected after
// the commit must not be able to cancel the publish.
func (p *Producer) Publish(ctx context.Context, ev domain.Event) error {
	topic, err := topicFor(ev.Kind)
	if err != nil {
		return err
	}

	data := WishlistEventData{
		WishlistID: ev.WishlistID,
		CustomerID: ev.CustomerID,
		Name:       ev.Name,
		Kind:       ev.Kind,
		Version:    ev.Version,
	}
	if ev.Item != nil {
		data.Item = &ItemData{
			ProductID: ev.Item.ProductID,
			VariantID: ev.Item.VariantID,
			Quantity:  ev.Item.Quantity,
		}
	}

	envelope, err := pkgkafka.NewEvent(topic, ev.WishlistID, AggregateTypeWishlist, SourceWishlistService, ev.Version, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		envelope = envelope.WithCorrelationID(cid)
	}

	detached := context.WithoutCancel(ctx)
	if err := p.writer.Publish(detached, topic, envelope); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("topic", topic),
		slog.String("wishlist_id", ev.WishlistID),
		slog.Int("version", ev.Version),
	)
	return nil
}
