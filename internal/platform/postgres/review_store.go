package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

const reviewColumns = `id, document_id, due_date, stage, priority, created_at`

// PostgresReviewStore implements store.ReviewStore on PostgreSQL. Replace
// runs in a transaction, so it needs the pool rather than a DBTX.
type PostgresReviewStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReviewStore creates a review store over db.
func NewPostgresReviewStore(db *sql.DB, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// Replace implements store.ReviewStore.Replace.
func (s *PostgresReviewStore) Replace(ctx context.Context, documentID uuid.UUID, entries []domain.ReviewEntry) error {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if entries[i].DocumentID != documentID {
			return fmt.Errorf("%w: review %s belongs to document %s",
				store.ErrInvalidEntity, entries[i].ID, entries[i].DocumentID)
		}
	}

	ctx = logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, s.logger))
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE document_id = $1`, documentID); err != nil {
			return MapError(err)
		}
		query := `INSERT INTO reviews (` + reviewColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, query,
				e.ID, e.DocumentID, domain.DateOf(e.DueDate), e.Stage, e.Priority, e.CreatedAt)
			if err != nil {
				return MapError(err)
			}
		}
		return nil
	})
}

// ListByDocument implements store.ReviewStore.ListByDocument.
func (s *PostgresReviewStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE document_id = $1 ORDER BY stage`
	return s.query(ctx, query, documentID)
}

// DeleteByDocument implements store.ReviewStore.DeleteByDocument.
func (s *PostgresReviewStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE document_id = $1`, documentID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete reviews",
			slog.String("error", err.Error()),
			slog.String("document_id", documentID.String()))
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// ListDue implements store.ReviewStore.ListDue.
func (s *PostgresReviewStore) ListDue(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE due_date = $1
		ORDER BY priority DESC, stage, document_id`
	return s.query(ctx, query, domain.DateOf(on))
}

func (s *PostgresReviewStore) query(ctx context.Context, query string, args ...any) ([]domain.ReviewEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ReviewEntry
	for rows.Next() {
		var e domain.ReviewEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.DueDate, &e.Stage, &e.Priority, &e.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		e.DueDate = domain.DateOf(e.DueDate)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}
