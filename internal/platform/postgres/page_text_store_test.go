package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresPageTextStore(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresPageTextStore(db, discardLogger())
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO page_texts")).
		WithArgs(id, []byte(`["page one","page two"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Put(ctx, id, []string{"page one", "page two"}))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pages FROM page_texts WHERE document_id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pages"}).AddRow([]byte(`["page one","page two"]`)))
	pages, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM page_texts")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(ctx, id))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pages FROM page_texts")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrPageTextNotFound)
}

func TestPostgresPageTextStore_EmptyPages(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresPageTextStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO page_texts")).
		WithArgs(id, []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Put(context.Background(), id, nil))
}
