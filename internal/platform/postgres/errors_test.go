package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantMsg string
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{
			name:   "unique violation",
			err:    &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "documents_pkey"},
			wantIs: store.ErrDuplicate,
		},
		{
			name:    "foreign key violation",
			err:     &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "fk_doc"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "foreign key violation (fk_doc)",
		},
		{
			name:    "check violation",
			err:     &pgconn.PgError{Code: checkViolationCode, ConstraintName: "documents_page_count_check"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "check constraint violation (documents_page_count_check)",
		},
		{
			name:    "not null violation",
			err:     &pgconn.PgError{Code: notNullViolationCode, ColumnName: "file_id"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "not null violation (file_id)",
		},
		{name: "unmapped error", err: other, wantIs: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.wantIs)
			if tt.wantMsg != "" {
				assert.Contains(t, got.Error(), tt.wantMsg)
			}
		})
	}
}

func TestViolationPredicates(t *testing.T) {
	unique := &pgconn.PgError{Code: uniqueViolationCode}
	check := &pgconn.PgError{Code: checkViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(check))
	assert.True(t, IsCheckConstraintViolation(check))
	assert.False(t, IsCheckConstraintViolation(errors.New("plain")))
}

func TestCheckRowsAffected(t *testing.T) {
	errMissing := errors.New("missing")

	tests := []struct {
		name     string
		result   sql.Result
		notFound error
		wantIs   error
		wantErr  bool
	}{
		{name: "one row", result: sqlmock.NewResult(0, 1)},
		{name: "no rows default", result: sqlmock.NewResult(0, 0), wantIs: store.ErrNotFound, wantErr: true},
		{name: "no rows custom", result: sqlmock.NewResult(0, 0), notFound: errMissing, wantIs: errMissing, wantErr: true},
		{name: "nil result", result: nil, wantErr: true},
		{name: "rows affected error", result: sqlmock.NewErrorResult(errors.New("driver")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRowsAffected(tt.result, tt.notFound)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}
