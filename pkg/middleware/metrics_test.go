package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_CountsRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("wishlist-test"))
	r.Get("/wishlists/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/wishlists/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), req)

	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(
		"wishlist-test", "GET", "/wishlists/{id}", "200",
	))
	assert.Equal(t, float64(2), count)
}

func TestPrometheusMetrics_RecordsStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("wishlist-test"))
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))

	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(
		"wishlist-test", "GET", "/missing", "404",
	))
	assert.Equal(t, float64(1), count)
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("wishlist-inflight"))
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	gauge := testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("wishlist-inflight"))
	assert.Equal(t, float64(0), gauge)
}
