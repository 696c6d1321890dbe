package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// PostgresPageTextStore implements store.PageTextStore on PostgreSQL. The
// pages of a document are stored as one JSONB array.
type PostgresPageTextStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPageTextStore creates a page text store over db.
func NewPostgresPageTextStore(db store.DBTX, logger *slog.Logger) *PostgresPageTextStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPageTextStore{
		db:     db,
		logger: logger.With(slog.String("component", "page_text_store")),
	}
}

var _ store.PageTextStore = (*PostgresPageTextStore)(nil)

// Put implements store.PageTextStore.Put.
func (s *PostgresPageTextStore) Put(ctx context.Context, documentID uuid.UUID, pages []string) error {
	if pages == nil {
		pages = []string{}
	}
	raw, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("failed to encode page texts: %w", err)
	}

	query := `
		INSERT INTO page_texts (document_id, pages, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id) DO UPDATE
		SET pages = EXCLUDED.pages, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, documentID, raw, time.Now().UTC()); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store page texts",
			slog.String("error", err.Error()),
			slog.String("document_id", documentID.String()),
			slog.Int("pages", len(pages)))
		return MapError(err)
	}
	return nil
}

// Get implements store.PageTextStore.Get.
func (s *PostgresPageTextStore) Get(ctx context.Context, documentID uuid.UUID) ([]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT pages FROM page_texts WHERE document_id = $1`, documentID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPageTextNotFound
		}
		return nil, MapError(err)
	}

	var pages []string
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode page texts for %s: %w", documentID, err)
	}
	return pages, nil
}

// Delete implements store.PageTextStore.Delete.
func (s *PostgresPageTextStore) Delete(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM page_texts WHERE document_id = $1`, documentID)
	return MapError(err)
}
