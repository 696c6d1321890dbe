package srs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// Common errors
var (
	ErrNilDocumentID = errors.New("document ID cannot be nil")
)

// Service defines the interface for review schedule calculations
type Service interface {
	// InitialReviews computes the review entries created with a document
	InitialReviews(documentID uuid.UUID, createdOn time.Time) ([]domain.ReviewEntry, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// InitialReviews implements the Service interface
func (s *defaultService) InitialReviews(
	documentID uuid.UUID,
	createdOn time.Time,
) ([]domain.ReviewEntry, error) {
	if documentID == uuid.Nil {
		return nil, ErrNilDocumentID
	}
	return buildInitialReviews(documentID, createdOn, time.Now().UTC(), s.params), nil
}

// InitialReviews computes the default schedule: four entries due 1, 3, 7 and
// 14 days after createdOn with stages 1..4 and priority 1.
func InitialReviews(documentID uuid.UUID, createdOn time.Time) ([]domain.ReviewEntry, error) {
	return NewDefaultService().InitialReviews(documentID, createdOn)
}
