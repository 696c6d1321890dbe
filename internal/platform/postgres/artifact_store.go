package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// PostgresArtifactStore implements store.ArtifactStore on PostgreSQL. The
// full record, payload included, is kept in a JSONB column; the key parts
// and status are duplicated into plain columns for lookups.
type PostgresArtifactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArtifactStore creates an artifact store over db.
func NewPostgresArtifactStore(db store.DBTX, logger *slog.Logger) *PostgresArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// Get implements store.ArtifactStore.Get.
func (s *PostgresArtifactStore) Get(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM artifacts WHERE key = $1`, key.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArtifactNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get artifact",
			slog.String("error", err.Error()),
			slog.String("key", key.String()))
		return nil, MapError(err)
	}
	return decodeRecord(raw)
}

// Put implements store.ArtifactStore.Put.
func (s *PostgresArtifactStore) Put(ctx context.Context, rec *domain.ArtifactRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", rec.Key, err)
	}

	query := `
		INSERT INTO artifacts (key, document_id, kind, status, generation, record, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE
		SET status = EXCLUDED.status,
			generation = EXCLUDED.generation,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.Key.String(),
		rec.Key.DocumentID,
		rec.Key.Kind,
		rec.Status,
		rec.Generation,
		raw,
		rec.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store artifact",
			slog.String("error", err.Error()),
			slog.String("key", rec.Key.String()),
			slog.String("status", string(rec.Status)))
		return MapError(err)
	}
	return nil
}

// ListByDocument implements store.ArtifactStore.ListByDocument.
func (s *PostgresArtifactStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM artifacts WHERE document_id = $1 ORDER BY key`, documentID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ArtifactRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, MapError(err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func decodeRecord(raw []byte) (*domain.ArtifactRecord, error) {
	var rec domain.ArtifactRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode artifact record: %w", err)
	}
	return &rec, nil
}
