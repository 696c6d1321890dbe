// Package redis stores artifact records in Redis, for deployments that keep
// generated artifacts outside the primary database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by this package.
const DefaultKeyPrefix = "morno:"

// NewClient parses a redis:// or rediss:// URL and checks the connection.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := goredis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// ArtifactStore implements store.ArtifactStore on Redis. Each record is a
// JSON string; a per-document set indexes the record keys.
type ArtifactStore struct {
	rdb    goredis.Cmdable
	prefix string
	logger *slog.Logger
}

// NewArtifactStore creates an ArtifactStore over rdb.
func NewArtifactStore(rdb goredis.Cmdable, prefix string, logger *slog.Logger) *ArtifactStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactStore{
		rdb:    rdb,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_artifact_store")),
	}
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

// Get implements store.ArtifactStore.
func (s *ArtifactStore) Get(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error) {
	raw, err := s.rdb.Get(ctx, s.recordKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrArtifactNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get artifact",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get artifact %s: %w", key, err)
	}
	return decodeRecord(raw)
}

// Put implements store.ArtifactStore. The record and its index entry are
// written in one MULTI/EXEC block.
func (s *ArtifactStore) Put(ctx context.Context, rec *domain.ArtifactRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", rec.Key, err)
	}

	recKey := s.recordKey(rec.Key)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, recKey, raw, 0)
		pipe.SAdd(ctx, s.indexKey(rec.Key.DocumentID), recKey)
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store artifact",
			slog.String("key", rec.Key.String()),
			slog.String("status", string(rec.Status)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to store artifact %s: %w", rec.Key, err)
	}
	return nil
}

// ListByDocument implements store.ArtifactStore.
func (s *ArtifactStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error) {
	keys, err := s.rdb.SMembers(ctx, s.indexKey(documentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts of %s: %w", documentID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	slices.Sort(keys)

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts of %s: %w", documentID, err)
	}

	out := make([]*domain.ArtifactRecord, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry without a record.
			logger.FromContextOrDefault(ctx, s.logger).Warn("dangling artifact index entry",
				slog.String("key", keys[i]))
			continue
		}
		rec, err := decodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *ArtifactStore) recordKey(key domain.ArtifactKey) string {
	return s.prefix + "artifact:" + key.String()
}

func (s *ArtifactStore) indexKey(documentID uuid.UUID) string {
	return s.prefix + "artifacts-by-document:" + documentID.String()
}

func decodeRecord(raw []byte) (*domain.ArtifactRecord, error) {
	var rec domain.ArtifactRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode artifact record: %w", err)
	}
	return &rec, nil
}
