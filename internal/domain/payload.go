package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxKeyPoints caps the key points kept per page summary.
const MaxKeyPoints = 5

// QuizOptionCount is the exact number of options per quiz question.
const QuizOptionCount = 4

// ArtifactPayload is the closed set of generated artifact bodies.
// Implementations live in this package only.
type ArtifactPayload interface {
	Kind() ArtifactKind
	Validate() error
	artifactPayload()
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question     string                  `json:"question"`
	Options      [QuizOptionCount]string `json:"options"`
	CorrectIndex int                     `json:"correct_index"`
	Explanation  string                  `json:"explanation,omitempty"`
}

// ConceptNote is a short study note generated alongside a quiz.
type ConceptNote struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Details string `json:"details,omitempty"`
	Tip     string `json:"tip,omitempty"`
}

// QuizPayload is the body of a quiz artifact.
type QuizPayload struct {
	Questions   []QuizQuestion `json:"questions"`
	Notes       []ConceptNote  `json:"notes"`
	SourceType  string         `json:"source_type"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// PageSummary is the structured summary of a single page.
type PageSummary struct {
	Outline       string   `json:"outline"`
	KeyPoints     []string `json:"key_points"`
	StudyQuestion string   `json:"study_question"`
}

// PageNote pairs a page's clipped text with its summary.
type PageNote struct {
	Index   int         `json:"index"`
	Label   string      `json:"label"`
	Text    string      `json:"text"`
	Summary PageSummary `json:"summary"`
}

// WindowNote is the continuous markdown summary of a run of pages.
type WindowNote struct {
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
	PageIndexes []int  `json:"page_indexes"`
	Markdown    string `json:"markdown"`
}

// LearningNotePayload is the body of a learning-note artifact.
type LearningNotePayload struct {
	PageCount   int          `json:"page_count"`
	WindowSize  int          `json:"window_size"`
	Pages       []PageNote   `json:"pages"`
	Windows     []WindowNote `json:"windows"`
	Markdown    string       `json:"markdown"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Kind implements ArtifactPayload.
func (*QuizPayload) Kind() ArtifactKind { return ArtifactKindQuiz }

// Kind implements ArtifactPayload.
func (*LearningNotePayload) Kind() ArtifactKind { return ArtifactKindLearningNote }

func (*QuizPayload) artifactPayload()         {}
func (*LearningNotePayload) artifactPayload() {}

// Validate checks that the quiz has at least one well-formed question.
func (p *QuizPayload) Validate() error {
	if len(p.Questions) == 0 {
		return fmt.Errorf("%w: quiz has no questions", ErrValidation)
	}
	for i, q := range p.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks question text, options and the correct index.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty question text", ErrValidation)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrValidation, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= QuizOptionCount {
		return fmt.Errorf("%w: correct index %d out of range", ErrValidation, q.CorrectIndex)
	}
	return nil
}

// Validate checks page ordering, window coverage and key point limits.
func (p *LearningNotePayload) Validate() error {
	if p.WindowSize < 1 {
		return fmt.Errorf("%w: window size %d", ErrValidation, p.WindowSize)
	}
	if len(p.Pages) != p.PageCount {
		return fmt.Errorf("%w: %d pages for page count %d", ErrValidation, len(p.Pages), p.PageCount)
	}
	for i, page := range p.Pages {
		if page.Index != i {
			return fmt.Errorf("%w: page %d out of order", ErrValidation, page.Index)
		}
		if len(page.Summary.KeyPoints) > MaxKeyPoints {
			return fmt.Errorf("%w: page %d has %d key points", ErrValidation, i, len(page.Summary.KeyPoints))
		}
	}
	next := 0
	for _, w := range p.Windows {
		if w.StartPage != next || w.EndPage < w.StartPage || w.EndPage >= p.PageCount {
			return fmt.Errorf("%w: window [%d-%d] does not continue at page %d",
				ErrValidation, w.StartPage, w.EndPage, next)
		}
		next = w.EndPage + 1
	}
	if next != p.PageCount {
		return fmt.Errorf("%w: windows cover %d of %d pages", ErrValidation, next, p.PageCount)
	}
	return nil
}

// ConceptsCount is the number of key points across all pages.
func (p *LearningNotePayload) ConceptsCount() int {
	n := 0
	for _, page := range p.Pages {
		n += len(page.Summary.KeyPoints)
	}
	return n
}

// IsEmpty reports whether the summary carries no content.
func (s PageSummary) IsEmpty() bool {
	return s.Outline == "" && len(s.KeyPoints) == 0 && s.StudyQuestion == ""
}

// DecodePayload decodes a stored payload of the given kind.
func DecodePayload(kind ArtifactKind, data []byte) (ArtifactPayload, error) {
	var payload ArtifactPayload
	switch kind {
	case ArtifactKindQuiz:
		payload = &QuizPayload{}
	case ArtifactKindLearningNote:
		payload = &LearningNotePayload{}
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidArtifactKind, kind)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return payload, nil
}
