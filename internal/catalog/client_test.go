package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MiSArch/wishlist/internal/domain"
	apperrors "github.com/MiSArch/wishlist/pkg/errors"
	"github.com/MiSArch/wishlist/pkg/httpclient"
)

type mockVariantRepo struct {
	mock.Mock
}

func (m *mockVariantRepo) Upsert(ctx context.Context, v *domain.ProductVariant) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockVariantRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockVariantRepo) DeleteByProduct(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *mockVariantRepo) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockVariantRepo) ExistsByProduct(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func newTestClient(t *testing.T, repo *mockVariantRepo, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hc := httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 10,
	})
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig(t.Name()), logger)
	return NewClient(repo, cb, baseURL, logger)
}

func TestVariantExists_ReplicaHit(t *testing.T) {
	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-1").Return(true, nil).Once()

	// No server behind baseURL; a replica hit must never reach the network.
	c := newTestClient(t, repo, "http://127.0.0.1:0")

	exists, err := c.VariantExists(context.Background(), "var-1")
	require.NoError(t, err)
	assert.True(t, exists)
	repo.AssertExpectations(t)
}

func TestVariantExists_ReplicaMiss_FallbackFound(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/v1/products/variants/var-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-1").Return(false, nil).Once()

	c := newTestClient(t, repo, server.URL)

	exists, err := c.VariantExists(context.Background(), "var-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(1), hits.Load())
}

func TestVariantExists_FallbackNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-missing").Return(false, nil).Once()

	c := newTestClient(t, repo, server.URL)

	exists, err := c.VariantExists(context.Background(), "var-missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVariantExists_ReplicaErrorFallsThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-1").Return(false, assert.AnError).Once()

	c := newTestClient(t, repo, server.URL)

	exists, err := c.VariantExists(context.Background(), "var-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProductExists_ReplicaHit(t *testing.T) {
	repo := new(mockVariantRepo)
	repo.On("ExistsByProduct", mock.Anything, "prod-1").Return(true, nil).Once()

	c := newTestClient(t, repo, "http://127.0.0.1:0")

	exists, err := c.ProductExists(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.True(t, exists)
	repo.AssertExpectations(t)
}

func TestProductExists_FallbackPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/prod-1", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo := new(mockVariantRepo)
	repo.On("ExistsByProduct", mock.Anything, "prod-1").Return(false, nil).Once()

	c := newTestClient(t, repo, server.URL)

	exists, err := c.ProductExists(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVariantExists_TransportFailureIsDependencyUnavailable(t *testing.T) {
	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-1").Return(false, nil).Once()

	// Nothing listens on this address.
	c := newTestClient(t, repo, "http://127.0.0.1:1")

	_, err := c.VariantExists(context.Background(), "var-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestVariantExists_UnexpectedStatusIsDependencyUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	repo := new(mockVariantRepo)
	repo.On("Exists", mock.Anything, "var-1").Return(false, nil).Once()

	c := newTestClient(t, repo, server.URL)

	_, err := c.VariantExists(context.Background(), "var-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}
