package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

// Text limits applied before prompting and when storing page text
const (
	MaxSourceChars     = 8000
	MaxPagePromptChars = 3500
	MaxPageTextChars   = 6000
	clipSuffix         = " …"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type pagePromptData struct {
	Label string
	Text  string
}

type windowPromptData struct {
	Range string
	Start int
	End   int
	Text  string
}

type quizPromptData struct {
	NumQuestions int
	Difficulty   string
	Source       string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func pagePrompt(label, text string) (string, error) {
	return render("page_summary.tmpl", pagePromptData{
		Label: label,
		Text:  truncate(text, MaxPagePromptChars),
	})
}

// windowPrompt uses 1-based page numbers, matching the labels shown to users.
func windowPrompt(start, end int, text string) (string, error) {
	return render("window.tmpl", windowPromptData{
		Range: fmt.Sprintf("p%d-p%d", start+1, end+1),
		Start: start + 1,
		End:   end + 1,
		Text:  truncate(text, MaxSourceChars),
	})
}

func quizPrompt(kind SourceKind, source string, numQuestions int, difficulty string) (string, error) {
	name := "quiz_file.tmpl"
	if kind == SourceText {
		name = "quiz_text.tmpl"
	}
	return render(name, quizPromptData{
		NumQuestions: numQuestions,
		Difficulty:   difficulty,
		Source:       truncate(source, MaxSourceChars),
	})
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// clip trims s and, when it is longer than limit runes, cuts it and marks
// the cut with an ellipsis.
func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimRightFunc(string([]rune(s)[:limit]), unicode.IsSpace) + clipSuffix
}

