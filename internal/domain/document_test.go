package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewDocument(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument("file-123", "lecture.pdf", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if doc.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if doc.ExtractionStatus != ExtractionStatusPending {
		t.Errorf("Expected status %s, got %s", ExtractionStatusPending, doc.ExtractionStatus)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	_, err = NewDocument("", "lecture.pdf", "application/pdf", 2048)
	if !errors.Is(err, ErrEmptyFileID) {
		t.Errorf("Expected error %v, got %v", ErrEmptyFileID, err)
	}
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()

	valid := Document{
		ID:               uuid.New(),
		FileID:           "file-1",
		ExtractionStatus: ExtractionStatusReady,
		PageCount:        3,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
		want   error
	}{
		{"nil id", func(d *Document) { d.ID = uuid.Nil }, ErrEmptyDocumentID},
		{"bad status", func(d *Document) { d.ExtractionStatus = "done" }, ErrInvalidExtraction},
		{"progress above 100", func(d *Document) { d.ExtractionProgress = 101 }, ErrInvalidProgress},
		{"negative pages", func(d *Document) { d.PageCount = -1 }, ErrNegativePageCount},
	}
	for _, tt := range tests {
		d := valid
		tt.mutate(&d)
		if err := d.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestExtractionStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to ExtractionStatus
		allowed  bool
	}{
		{ExtractionStatusPending, ExtractionStatusProcessing, true},
		{ExtractionStatusPending, ExtractionStatusReady, false},
		{ExtractionStatusProcessing, ExtractionStatusReady, true},
		{ExtractionStatusProcessing, ExtractionStatusFailed, true},
		{ExtractionStatusProcessing, ExtractionStatusProcessing, false},
		{ExtractionStatusReady, ExtractionStatusProcessing, false},
		{ExtractionStatusReady, ExtractionStatusPending, false},
		{ExtractionStatusFailed, ExtractionStatusPending, true},
		{ExtractionStatusFailed, ExtractionStatusProcessing, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.allowed, got)
		}
	}

	doc := &Document{ExtractionStatus: ExtractionStatusReady}
	if err := doc.Transition(ExtractionStatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if doc.ExtractionStatus != ExtractionStatusReady {
		t.Errorf("Rejected transition must not change status, got %s", doc.ExtractionStatus)
	}
}
