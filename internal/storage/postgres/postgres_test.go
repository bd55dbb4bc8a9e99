package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/starship-shop/internal/domain/credits"
)

func setupMock(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return New(mock), mock
}

func TestStore_Get(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(getValueSQL)).
		WithArgs(credits.DefaultKey).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("1050000"))

	v, found, err := store.Get(context.Background(), credits.DefaultKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1050000", v)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(getValueSQL)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	v, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestStore_Get_Error(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(getValueSQL)).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_Set(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(setValueSQL)).
		WithArgs(credits.DefaultKey, "500").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), credits.DefaultKey, "500"))
}

func TestStore_Set_Error(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(setValueSQL)).
		WithArgs("k", "1").
		WillReturnError(errors.New("read-only transaction"))

	err := store.Set(context.Background(), "k", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `setting "k"`)
}

func TestStore_Migrate(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.Migrate(context.Background()))
}

func TestStore_WithCreditsStore(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(setValueSQL)).
		WithArgs(credits.DefaultKey, "500").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(getValueSQL)).
		WithArgs(credits.DefaultKey).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("500"))

	cs := credits.NewStore(store)
	_, err := cs.Save(context.Background(), 500)
	require.NoError(t, err)

	balance, err := credits.NewStore(store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
}
