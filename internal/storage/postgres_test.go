package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return newPostgresStore(mock, "42", []time.Duration{time.Millisecond, time.Millisecond}), mock
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM local_storage").
		WithArgs("42", "cart").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`[{"id":1}]`))

	v, err := s.Get(context.Background(), "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM local_storage").
		WithArgs("42", "orderType").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "orderType")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetRetriesSerializationFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO local_storage").
		WithArgs("42", "delivery_addr", "Lenina 5").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectExec("INSERT INTO local_storage").
		WithArgs("42", "delivery_addr", "Lenina 5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), "delivery_addr", "Lenina 5"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetDoesNotRetryConstraintErrors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO local_storage").
		WithArgs("42", "cart", "[]").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})

	err := s.Set(context.Background(), "cart", "[]")
	require.Error(t, err)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM local_storage").
		WithArgs("42", "delivery_geo").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "delivery_geo"))
	require.NoError(t, mock.ExpectationsWereMet())
}
