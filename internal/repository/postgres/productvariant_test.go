package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiSArch/wishlist/internal/domain"
)

func newVariantTestFixture(t *testing.T) (*ProductVariantRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewProductVariantRepository(mock)
	return repo, mock
}

func TestProductVariantRepository_Upsert(t *testing.T) {
	repo, mock := newVariantTestFixture(t)
	defer mock.Close()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := &domain.ProductVariant{ID: "var-1", ProductID: "prod-1", Available: true, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO product_variants").
		WithArgs(v.ID, v.ProductID, v.Available, v.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Upsert(context.Background(), v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductVariantRepository_Delete(t *testing.T) {
	repo, mock := newVariantTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM product_variants").
		WithArgs("var-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), "var-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductVariantRepository_Delete_Unknown(t *testing.T) {
	repo, mock := newVariantTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM product_variants").
		WithArgs("var-unknown").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	// Unknown variants are a no-op.
	assert.NoError(t, repo.Delete(context.Background(), "var-unknown"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductVariantRepository_Exists(t *testing.T) {
	repo, mock := newVariantTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("var-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "var-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductVariantRepository_Exists_QueryError(t *testing.T) {
	repo, mock := newVariantTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("var-1").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Exists(context.Background(), "var-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check product variant exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}
