package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// stripJSONFences removes markdown code fences the model tends to wrap JSON
// answers in.
func stripJSONFences(raw string) string {
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}

// unwrapMarkdown removes a single fence around the whole answer, keeping any
// fenced blocks inside it.
func unwrapMarkdown(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return text
	}
	return strings.TrimSpace(body[nl+1:])
}

func decodeJSON(raw string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

// parsePageSummary reads a page summary, accepting the field aliases models
// commonly substitute for the requested names.
func parsePageSummary(raw string) (domain.PageSummary, error) {
	data, err := decodeJSON(raw)
	if err != nil {
		return domain.PageSummary{}, err
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return domain.PageSummary{}, fmt.Errorf("%w: page summary is not a JSON object", ErrInvalidResponse)
	}

	points := firstList(obj, "keyPoints", "bullets", "details")
	if len(points) > domain.MaxKeyPoints {
		points = points[:domain.MaxKeyPoints]
	}
	summary := domain.PageSummary{
		Outline:       firstString(obj, "outline", "summary"),
		KeyPoints:     points,
		StudyQuestion: firstString(obj, "studyQuestion", "quiz"),
	}
	if summary.IsEmpty() {
		return domain.PageSummary{}, fmt.Errorf("%w: page summary has no outline, key points or study question", ErrInvalidResponse)
	}
	return summary, nil
}

// parseQuiz reads quiz questions and concept notes. Questions beyond limit
// are dropped; a single malformed question rejects the whole answer.
func parseQuiz(raw string, limit int) ([]domain.QuizQuestion, []domain.ConceptNote, error) {
	data, err := decodeJSON(raw)
	if err != nil {
		return nil, nil, err
	}

	var items []any
	var notesRaw any
	switch v := data.(type) {
	case map[string]any:
		list, ok := v["questions"].([]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: missing questions array", ErrInvalidResponse)
		}
		items = list
		notesRaw = v["notes"]
	case []any:
		items = v
	default:
		return nil, nil, fmt.Errorf("%w: expected a JSON object or array", ErrInvalidResponse)
	}

	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: no questions generated", ErrInvalidResponse)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	questions := make([]domain.QuizQuestion, 0, len(items))
	for i, item := range items {
		q, err := parseQuestion(item)
		if err != nil {
			return nil, nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, parseNotes(notesRaw), nil
}

func parseQuestion(item any) (domain.QuizQuestion, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return domain.QuizQuestion{}, fmt.Errorf("%w: question is not an object", ErrInvalidResponse)
	}

	var q domain.QuizQuestion
	q.Question = firstString(obj, "question", "q")
	q.Explanation = firstString(obj, "explanation")

	options := firstValue(obj, "options", "opts")
	list, _ := options.([]any)
	if len(list) < domain.QuizOptionCount {
		return q, fmt.Errorf("%w: %d options, need %d", ErrInvalidResponse, len(list), domain.QuizOptionCount)
	}
	for i := range domain.QuizOptionCount {
		q.Options[i] = scalarString(list[i])
	}

	idx, ok := intValue(firstValue(obj, "correctIndex", "correct"))
	if !ok {
		return q, fmt.Errorf("%w: missing correct index", ErrInvalidResponse)
	}
	q.CorrectIndex = idx

	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return q, nil
}

func parseNotes(raw any) []domain.ConceptNote {
	var notes []domain.ConceptNote
	switch v := raw.(type) {
	case string:
		for _, line := range splitLines(v) {
			notes = append(notes, domain.ConceptNote{Summary: line})
		}
	case []any:
		for _, item := range v {
			switch n := item.(type) {
			case map[string]any:
				note := domain.ConceptNote{
					Title:   firstString(n, "title"),
					Summary: firstString(n, "summary"),
					Details: strings.Join(firstList(n, "details"), "\n"),
					Tip:     firstString(n, "tip"),
				}
				if note.Title != "" || note.Summary != "" {
					notes = append(notes, note)
				}
			default:
				if s := scalarString(n); s != "" {
					notes = append(notes, domain.ConceptNote{Summary: s})
				}
			}
		}
	}
	return notes
}

// firstValue returns the first non-empty value among keys.
func firstValue(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
		case []any:
			if len(t) == 0 {
				continue
			}
		}
		return v
	}
	return nil
}

func firstString(obj map[string]any, keys ...string) string {
	return scalarString(firstValue(obj, keys...))
}

// firstList accepts either a JSON array or a newline separated string.
func firstList(obj map[string]any, keys ...string) []string {
	switch v := firstValue(obj, keys...).(type) {
	case string:
		return splitLines(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
