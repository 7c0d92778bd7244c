package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiSArch/wishlist/internal/domain"
	apperrors "github.com/MiSArch/wishlist/pkg/errors"
	"github.com/MiSArch/wishlist/pkg/pagination"
)

func newWishlistTestFixture(t *testing.T) (*WishlistRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewWishlistRepository(mock)
	return repo, mock
}

func testWishlist(t *testing.T) *domain.Wishlist {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	w, _, err := domain.New("wl-1", "8d2f4c4e-5b1a-4c89-9f1e-2a7b3c4d5e6f", "Birthday", now)
	require.NoError(t, err)
	return w
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestWishlistRepository_Load_Success(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	mock.ExpectQuery("SELECT doc FROM wishlists WHERE id =").
		WithArgs("wl-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(mustMarshal(t, w)))

	got, err := repo.Load(context.Background(), "wl-1")
	require.NoError(t, err)
	assert.Equal(t, "wl-1", got.ID)
	assert.Equal(t, "Birthday", got.Name)
	assert.Equal(t, 1, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Load_ReturnsUnsharedAggregate(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	doc := mustMarshal(t, w)
	mock.ExpectQuery("SELECT doc FROM wishlists WHERE id =").
		WithArgs("wl-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))
	mock.ExpectQuery("SELECT doc FROM wishlists WHERE id =").
		WithArgs("wl-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	first, err := repo.Load(context.Background(), "wl-1")
	require.NoError(t, err)

	// Mutating the first result must not bleed into later loads. The
	// service applies commands in place before a conditional commit that
	// may lose, then reloads and tries again.
	_, err = first.AddItem("P1", "", 2, first.UpdatedAt)
	require.NoError(t, err)

	second, err := repo.Load(context.Background(), "wl-1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, second.Version)
	assert.Empty(t, second.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Load_NotFound(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT doc FROM wishlists WHERE id =").
		WithArgs("wl-missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Load(context.Background(), "wl-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// CommitIfVersion
// ---------------------------------------------------------------------------

func TestWishlistRepository_CommitIfVersion_Insert(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs(w.ID, w.CustomerID, w.Version, w.Deleted, mustMarshal(t, w), w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := repo.CommitIfVersion(context.Background(), w, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_CommitIfVersion_InsertDuplicateID(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs(w.ID, w.CustomerID, w.Version, w.Deleted, mustMarshal(t, w), w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.CommitIfVersion(context.Background(), w, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_CommitIfVersion_Update(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	_, err := w.AddItem("P1", "", 2, w.UpdatedAt)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE wishlists").
		WithArgs(w.Version, w.Deleted, mustMarshal(t, w), w.UpdatedAt, w.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.CommitIfVersion(context.Background(), w, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_CommitIfVersion_StaleVersion(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	_, err := w.AddItem("P1", "", 2, w.UpdatedAt)
	require.NoError(t, err)

	// Another writer advanced the row; the conditional update matches nothing.
	mock.ExpectExec("UPDATE wishlists").
		WithArgs(w.Version, w.Deleted, mustMarshal(t, w), w.UpdatedAt, w.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.CommitIfVersion(context.Background(), w, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_CommitIfVersion_ExecError(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	_, err := w.AddItem("P1", "", 2, w.UpdatedAt)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE wishlists").
		WithArgs(w.Version, w.Deleted, mustMarshal(t, w), w.UpdatedAt, w.ID, 1).
		WillReturnError(errors.New("connection refused"))

	_, err = repo.CommitIfVersion(context.Background(), w, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update wishlist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListByCustomer
// ---------------------------------------------------------------------------

func TestWishlistRepository_ListByCustomer(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	w := testWishlist(t)
	params := pagination.FromArgs(1, 20)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(w.CustomerID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT doc").
		WithArgs(w.CustomerID, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(mustMarshal(t, w)))

	lists, total, err := repo.ListByCustomer(context.Background(), w.CustomerID, params)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lists, 1)
	assert.Equal(t, "wl-1", lists[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_ListByCustomer_Empty(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	params := pagination.FromArgs(1, 20)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("customer-none").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT doc").
		WithArgs("customer-none", 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}))

	lists, total, err := repo.ListByCustomer(context.Background(), "customer-none", params)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Sanity check that the NotFound mapping uses the sentinel, since the service
// layer branches on it.
func TestNotFoundSentinel(t *testing.T) {
	err := apperrors.NotFound("wishlist", "wl-x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
