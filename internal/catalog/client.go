package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MiSArch/wishlist/internal/repository"
	apperrors "github.com/MiSArch/wishlist/pkg/errors"
	"github.com/MiSArch/wishlist/pkg/httpclient"
)

// serviceName identifies the downstream dependency in errors and logs.
const serviceName = "product-service"

// Checker validates catalog references before they enter a wishlist.
type Checker interface {
	VariantExists(ctx context.Context, variantID string) (bool, error)
	ProductExists(ctx context.Context, productID string) (bool, error)
}

// Client answers variant-existence checks from the local replica first and
// falls back to the product service over HTTP when the replica has no
// positive answer. Transport failure surfaces as DependencyUnavailable so
// callers can tell infrastructure trouble from bad input.
type Client struct {
	variants repository.ProductVariantRepository
	http     *httpclient.CircuitBreakerClient
	baseURL  string
	timeout  timeoutFunc
	logger   *slog.Logger
}

type timeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)

// NewClient creates a catalog client. baseURL is the product service root,
// e.g. "http://product-service:8080".
func NewClient(variants repository.ProductVariantRepository, cb *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		variants: variants,
		http:     cb,
		baseURL:  baseURL,
		timeout:  defaultTimeout,
		logger:   logger,
	}
}

// requestTimeout bounds a single existence check including retries.
const requestTimeout = 2 * time.Second

func defaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}

// VariantExists reports whether the variant is known to the catalog.
func (c *Client) VariantExists(ctx context.Context, variantID string) (bool, error) {
	// Replica fast path. A positive hit never needs the network; a miss may
	// just mean the replica lags, so it falls through.
	known, err := c.variants.Exists(ctx, variantID)
	if err != nil {
		c.logger.WarnContext(ctx, "variant replica lookup failed, falling back to product service",
			slog.String("variant_id", variantID),
			slog.String("error", err.Error()),
		)
	} else if known {
		return true, nil
	}

	url := fmt.Sprintf("%s/api/v1/products/variants/%s", c.baseURL, variantID)
	return c.fetch(ctx, url)
}

// ProductExists reports whether any available variant of the product is known
// to the catalog.
func (c *Client) ProductExists(ctx context.Context, productID string) (bool, error) {
	known, err := c.variants.ExistsByProduct(ctx, productID)
	if err != nil {
		c.logger.WarnContext(ctx, "product replica lookup failed, falling back to product service",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	} else if known {
		return true, nil
	}

	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)
	return c.fetch(ctx, url)
}

func (c *Client) fetch(ctx context.Context, url string) (bool, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return false, apperrors.DependencyUnavailable(serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusGone:
		return false, nil
	default:
		return false, apperrors.DependencyUnavailable(serviceName,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
