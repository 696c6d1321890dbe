package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ArtifactKind identifies which derived artifact a key refers to.
type ArtifactKind string

// Supported artifact kinds
const (
	ArtifactKindQuiz         ArtifactKind = "quiz"
	ArtifactKindLearningNote ArtifactKind = "learning_note"
)

// Generation parameter bounds
const (
	DefaultWindowSize    = 3
	MaxWindowSize        = 7
	DefaultNumQuestions  = 5
	MaxNumQuestions      = 20
	DefaultDifficulty    = "normal"
	MaxDifficultyLength  = 32
	initialGenerationNum = 1
)

// ArtifactStatus is the build state of an artifact record.
type ArtifactStatus string

// Possible artifact status values
const (
	ArtifactStatusPending    ArtifactStatus = "pending"
	ArtifactStatusProcessing ArtifactStatus = "processing"
	ArtifactStatusReady      ArtifactStatus = "ready"
	ArtifactStatusFailed     ArtifactStatus = "failed"
	ArtifactStatusRemoved    ArtifactStatus = "removed"
)

// Artifact validation errors
var (
	ErrInvalidArtifactKind   = errors.New("invalid artifact kind")
	ErrInvalidArtifactStatus = errors.New("invalid artifact status")
	ErrInvalidWindowSize     = fmt.Errorf("window size must be within 1..%d", MaxWindowSize)
	ErrInvalidNumQuestions   = fmt.Errorf("number of questions must be within 1..%d", MaxNumQuestions)
	ErrInvalidDifficulty     = fmt.Errorf("difficulty must be 1..%d characters", MaxDifficultyLength)
)

// ArtifactParams holds the generation parameters that distinguish two
// artifacts of the same kind for the same document. Only the fields that
// belong to the key's kind are set.
type ArtifactParams struct {
	WindowSize   int    `json:"window_size,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// ArtifactKey identifies one cached artifact. It is comparable and can be
// used directly as a map key.
type ArtifactKey struct {
	DocumentID uuid.UUID      `json:"document_id"`
	Kind       ArtifactKind   `json:"kind"`
	Params     ArtifactParams `json:"params"`
}

// QuizParams are the caller-facing quiz options.
type QuizParams struct {
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
}

// WithDefaults fills zero values with the default quiz options.
func (p QuizParams) WithDefaults() QuizParams {
	if p.NumQuestions == 0 {
		p.NumQuestions = DefaultNumQuestions
	}
	if p.Difficulty == "" {
		p.Difficulty = DefaultDifficulty
	}
	return p
}

// NewLearningNoteKey builds and validates a learning-note key.
func NewLearningNoteKey(documentID uuid.UUID, windowSize int) (ArtifactKey, error) {
	key := ArtifactKey{
		DocumentID: documentID,
		Kind:       ArtifactKindLearningNote,
		Params:     ArtifactParams{WindowSize: windowSize},
	}
	return key, key.Validate()
}

// NewQuizKey builds and validates a quiz key. Zero-valued params are replaced
// by their defaults first.
func NewQuizKey(documentID uuid.UUID, params QuizParams) (ArtifactKey, error) {
	params = params.WithDefaults()
	key := ArtifactKey{
		DocumentID: documentID,
		Kind:       ArtifactKindQuiz,
		Params: ArtifactParams{
			NumQuestions: params.NumQuestions,
			Difficulty:   params.Difficulty,
		},
	}
	return key, key.Validate()
}

// Validate checks the key for a known kind and in-range parameters. All
// failures wrap ErrInvalidArgument.
func (k ArtifactKey) Validate() error {
	if k.DocumentID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyDocumentID)
	}

	switch k.Kind {
	case ArtifactKindLearningNote:
		if k.Params.WindowSize < 1 || k.Params.WindowSize > MaxWindowSize {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrInvalidWindowSize)
		}
		if k.Params.NumQuestions != 0 || k.Params.Difficulty != "" {
			return fmt.Errorf("%w: quiz parameters on a learning note key", ErrInvalidArgument)
		}
	case ArtifactKindQuiz:
		if k.Params.NumQuestions < 1 || k.Params.NumQuestions > MaxNumQuestions {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrInvalidNumQuestions)
		}
		n := utf8.RuneCountInString(k.Params.Difficulty)
		if n < 1 || n > MaxDifficultyLength {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrInvalidDifficulty)
		}
		if k.Params.WindowSize != 0 {
			return fmt.Errorf("%w: window size on a quiz key", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidArgument, ErrInvalidArtifactKind, k.Kind)
	}
	return nil
}

// String returns the canonical form of the key, used as the storage key.
func (k ArtifactKey) String() string {
	switch k.Kind {
	case ArtifactKindLearningNote:
		return fmt.Sprintf("%s/%s/w=%d", k.Kind, k.DocumentID, k.Params.WindowSize)
	case ArtifactKindQuiz:
		return fmt.Sprintf("%s/%s/n=%d/d=%s", k.Kind, k.DocumentID,
			k.Params.NumQuestions, url.PathEscape(k.Params.Difficulty))
	default:
		return fmt.Sprintf("%s/%s", k.Kind, k.DocumentID)
	}
}

// Valid reports whether s is a known artifact status.
func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactStatusPending, ArtifactStatusProcessing, ArtifactStatusReady,
		ArtifactStatusFailed, ArtifactStatusRemoved:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an artifact record may move from s to next.
// Re-entering processing from any live state is a rebuild; removed is
// terminal.
func (s ArtifactStatus) CanTransition(next ArtifactStatus) bool {
	if s == ArtifactStatusRemoved {
		return false
	}
	switch next {
	case ArtifactStatusProcessing, ArtifactStatusRemoved:
		return true
	case ArtifactStatusReady, ArtifactStatusFailed:
		return s == ArtifactStatusProcessing
	default:
		return false
	}
}

// ArtifactRecord is the persisted state of one artifact key.
type ArtifactRecord struct {
	Key        ArtifactKey     `json:"key"`
	Status     ArtifactStatus  `json:"status"`
	Payload    ArtifactPayload `json:"-"`
	Generation int64           `json:"generation"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewArtifactRecord returns a pending record at the first generation.
func NewArtifactRecord(key ArtifactKey) *ArtifactRecord {
	now := time.Now().UTC()
	return &ArtifactRecord{
		Key:        key,
		Status:     ArtifactStatusPending,
		Generation: initialGenerationNum,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transition moves the record to next, or returns ErrInvalidTransition.
func (r *ArtifactRecord) Transition(next ArtifactStatus) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: artifact %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	if next != ArtifactStatusReady {
		r.Payload = nil
	}
	if next != ArtifactStatusFailed {
		r.Error = ""
	}
	return nil
}

// Clone returns a shallow copy. The payload pointer is shared.
func (r *ArtifactRecord) Clone() *ArtifactRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Validate checks the record's structural invariants.
func (r *ArtifactRecord) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return ErrInvalidArtifactStatus
	}
	if r.Generation < initialGenerationNum {
		return fmt.Errorf("%w: generation %d", ErrValidation, r.Generation)
	}
	if (r.Status == ArtifactStatusReady) != (r.Payload != nil) {
		return fmt.Errorf("%w: payload must be present exactly when ready", ErrValidation)
	}
	if r.Payload != nil && r.Payload.Kind() != r.Key.Kind {
		return fmt.Errorf("%w: %s payload on %s key", ErrValidation, r.Payload.Kind(), r.Key.Kind)
	}
	return nil
}

type artifactRecordJSON struct {
	Key        ArtifactKey     `json:"key"`
	Status     ArtifactStatus  `json:"status"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Generation int64           `json:"generation"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MarshalJSON encodes the record with its payload inline.
func (r ArtifactRecord) MarshalJSON() ([]byte, error) {
	out := artifactRecordJSON{
		Key:        r.Key,
		Status:     r.Status,
		Generation: r.Generation,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a record, choosing the payload variant from the
// key's kind.
func (r *ArtifactRecord) UnmarshalJSON(data []byte) error {
	var in artifactRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ArtifactRecord{
		Key:        in.Key,
		Status:     in.Status,
		Generation: in.Generation,
		Error:      in.Error,
		CreatedAt:  in.CreatedAt,
		UpdatedAt:  in.UpdatedAt,
	}
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	payload, err := DecodePayload(in.Key.Kind, in.Payload)
	if err != nil {
		return err
	}
	r.Payload = payload
	return nil
}
