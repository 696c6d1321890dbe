package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentRowColumns = []string{
	"id", "file_id", "original_name", "content_type", "size_bytes",
	"extraction_status", "extraction_progress", "extraction_error",
	"page_count", "concepts_count", "created_at", "updated_at",
}

func testDocument(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument("file-1.pdf", "lecture.pdf", "application/pdf", 2048)
	require.NoError(t, err)
	return doc
}

func documentRow(doc *domain.Document) []driver.Value {
	return []driver.Value{
		doc.ID.String(), doc.FileID, doc.OriginalName, doc.ContentType, doc.SizeBytes,
		string(doc.ExtractionStatus), doc.ExtractionProgress, doc.ExtractionError,
		doc.PageCount, doc.ConceptsCount, doc.CreatedAt, doc.UpdatedAt,
	}
}

func TestPostgresDocumentStore_Create(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())
	doc := testDocument(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs(doc.ID, doc.FileID, doc.OriginalName, doc.ContentType, doc.SizeBytes,
			"pending", 0, "", 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), doc))
}

func TestPostgresDocumentStore_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "documents_pkey"})

	err := s.Create(context.Background(), testDocument(t))
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestPostgresDocumentStore_CreateInvalid(t *testing.T) {
	db, _ := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())
	doc := testDocument(t)
	doc.FileID = ""

	err := s.Create(context.Background(), doc)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrEmptyFileID)
}

func TestPostgresDocumentStore_GetByID(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())
	doc := testDocument(t)
	doc.ExtractionStatus = domain.ExtractionStatusReady
	doc.ExtractionProgress = 100
	doc.PageCount = 3

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs(doc.ID).
		WillReturnRows(sqlmock.NewRows(documentRowColumns).AddRow(documentRow(doc)...))

	got, err := s.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, domain.ExtractionStatusReady, got.ExtractionStatus)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, 100, got.ExtractionProgress)
}

func TestPostgresDocumentStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresDocumentStore_Update(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantIs   error
	}{
		{name: "updated", affected: 1},
		{name: "missing document", affected: 0, wantIs: store.ErrDocumentNotFound},
		{
			name:    "check violation",
			execErr: &pgconn.PgError{Code: checkViolationCode},
			wantIs:  store.ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			s := NewPostgresDocumentStore(db, discardLogger())
			doc := testDocument(t)
			doc.ExtractionStatus = domain.ExtractionStatusProcessing
			doc.ExtractionProgress = 40

			exp := mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
				WithArgs(doc.ID, doc.FileID, doc.OriginalName, doc.ContentType, doc.SizeBytes,
					"processing", 40, "", 0, 0, sqlmock.AnyArg())
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := s.Update(context.Background(), doc)
			if tt.wantIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestPostgresDocumentStore_List(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())

	newer := testDocument(t)
	older := testDocument(t)
	older.CreatedAt = newer.CreatedAt.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow(documentRow(newer)...).
			AddRow(documentRow(older)...))

	docs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, newer.ID, docs[0].ID)
	assert.Equal(t, older.ID, docs[1].ID)
}

func TestPostgresDocumentStore_Delete(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresDocumentStore(db, discardLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, s.Delete(context.Background(), id))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs(id).
		WillReturnError(errors.New("connection lost"))
	assert.Error(t, s.Delete(context.Background(), id))
}
