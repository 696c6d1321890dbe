package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExtractionStatus represents the ingestion state of a document.
type ExtractionStatus string

// Possible extraction status values
const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusProcessing ExtractionStatus = "processing"
	ExtractionStatusReady      ExtractionStatus = "ready"
	ExtractionStatusFailed     ExtractionStatus = "failed"
)

// Document-specific validation errors
var (
	ErrEmptyDocumentID   = errors.New("document ID cannot be empty")
	ErrEmptyFileID       = errors.New("document file ID cannot be empty")
	ErrInvalidExtraction = errors.New("invalid extraction status")
	ErrInvalidProgress   = errors.New("extraction progress must be within 0..100")
	ErrNegativePageCount = errors.New("page count cannot be negative")
)

// Document is an uploaded file and the ingestion state of its text.
type Document struct {
	ID                 uuid.UUID        `json:"id"`
	FileID             string           `json:"file_id"`
	OriginalName       string           `json:"original_name"`
	ContentType        string           `json:"content_type,omitempty"`
	SizeBytes          int64            `json:"size_bytes"`
	ExtractionStatus   ExtractionStatus `json:"extraction_status"`
	ExtractionProgress int              `json:"extraction_progress"`
	ExtractionError    string           `json:"extraction_error,omitempty"`
	PageCount          int              `json:"page_count"`
	ConceptsCount      int              `json:"concepts_count"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewDocument creates a pending Document referencing the stored file.
// Returns an error if validation fails.
func NewDocument(fileID, originalName, contentType string, size int64) (*Document, error) {
	now := time.Now().UTC()
	doc := &Document{
		ID:               uuid.New(),
		FileID:           fileID,
		OriginalName:     originalName,
		ContentType:      contentType,
		SizeBytes:        size,
		ExtractionStatus: ExtractionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks if the Document has valid data.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}
	if d.FileID == "" {
		return ErrEmptyFileID
	}
	if !d.ExtractionStatus.Valid() {
		return ErrInvalidExtraction
	}
	if d.ExtractionProgress < 0 || d.ExtractionProgress > 100 {
		return ErrInvalidProgress
	}
	if d.PageCount < 0 {
		return ErrNegativePageCount
	}
	return nil
}

// Valid reports whether s is a known extraction status.
func (s ExtractionStatus) Valid() bool {
	switch s {
	case ExtractionStatusPending, ExtractionStatusProcessing,
		ExtractionStatusReady, ExtractionStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the extraction state machine allows moving
// from s to next.
func (s ExtractionStatus) CanTransition(next ExtractionStatus) bool {
	switch s {
	case ExtractionStatusPending:
		return next == ExtractionStatusProcessing
	case ExtractionStatusProcessing:
		return next == ExtractionStatusReady || next == ExtractionStatusFailed
	case ExtractionStatusFailed:
		return next == ExtractionStatusPending
	default:
		return false
	}
}

// Transition moves the document to next, or returns ErrInvalidTransition.
func (d *Document) Transition(next ExtractionStatus) error {
	if !d.ExtractionStatus.CanTransition(next) {
		return fmt.Errorf("%w: extraction %s -> %s", ErrInvalidTransition, d.ExtractionStatus, next)
	}
	d.ExtractionStatus = next
	d.UpdatedAt = time.Now().UTC()
	return nil
}
