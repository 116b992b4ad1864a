package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_Context(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(fmt.Errorf("q: %w", context.DeadlineExceeded))))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name  string
		pgErr *pgconn.PgError
		code  ErrorCode
		field string
	}{
		{"unique with column", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "key"}, ErrCodeConflict, "key"},
		{"unique from detail", &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (namespace, key)=(a, b) already exists."}, ErrCodeConflict, "namespace, key"},
		{"check", &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "key"}, ErrCodeValidation, "key"},
		{"not null", &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "value"}, ErrCodeValidation, "value"},
		{"shutdown", &pgconn.PgError{Code: pgerrcode.AdminShutdown}, ErrCodeUnavailable, ""},
		{"other", &pgconn.PgError{Code: pgerrcode.SyntaxError}, ErrCodeInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(fmt.Errorf("exec: %w", tt.pgErr))
			assert.Equal(t, tt.code, GetCode(err))
			assert.Equal(t, tt.field, GetField(err))
			var pgErr *pgconn.PgError
			assert.True(t, errors.As(err, &pgErr))
		})
	}
}

func TestMapDBError_PassThrough(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, plain, MapDBError(plain))
}
