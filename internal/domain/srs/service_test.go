package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialReviews(t *testing.T) {
	t.Parallel()

	docID := uuid.New()
	createdOn := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	entries, err := InitialReviews(docID, createdOn)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	wantDates := []string{"2024-01-11", "2024-01-13", "2024-01-17", "2024-01-24"}
	ids := make(map[uuid.UUID]bool)
	for i, e := range entries {
		assert.Equal(t, wantDates[i], e.DueDate.Format(domain.DateLayout))
		assert.Equal(t, i+1, e.Stage)
		assert.Equal(t, 1, e.Priority)
		assert.Equal(t, docID, e.DocumentID)
		assert.NoError(t, e.Validate())
		ids[e.ID] = true
	}
	assert.Len(t, ids, 4, "entry IDs must be unique")
}

func TestInitialReviewsNilDocument(t *testing.T) {
	t.Parallel()

	_, err := InitialReviews(uuid.Nil, time.Now())
	assert.ErrorIs(t, err, ErrNilDocumentID)
}

func TestCalculateDueDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		created time.Time
		offset  int
		want    string
	}{
		{"same month", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 3, "2024-01-13"},
		{"month boundary", time.Date(2024, 1, 30, 23, 59, 0, 0, time.UTC), 7, "2024-02-06"},
		{"leap day", time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC), 1, "2024-02-29"},
		{"year boundary", time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC), 14, "2024-01-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateDueDate(tt.created, tt.offset)
			assert.Equal(t, tt.want, got.Format(domain.DateLayout))
			assert.Zero(t, got.Hour())
		})
	}
}

func TestNewParams(t *testing.T) {
	t.Parallel()

	custom := NewParams(ParamsConfig{OffsetDays: []int{2, 5}, Priority: 3})
	assert.Equal(t, []int{2, 5}, custom.OffsetDays)
	assert.Equal(t, 3, custom.Priority)

	// Non-increasing offsets fall back to the defaults
	fallback := NewParams(ParamsConfig{OffsetDays: []int{3, 3}})
	assert.Equal(t, []int{1, 3, 7, 14}, fallback.OffsetDays)
	assert.Equal(t, 1, fallback.Priority)

	svc := NewServiceWithParams(custom)
	entries, err := svc.InitialReviews(uuid.New(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01-15", entries[1].DueDate.Format(domain.DateLayout))
	assert.Equal(t, 3, entries[1].Priority)
}
