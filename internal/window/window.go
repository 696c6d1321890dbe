// Package window splits page-indexed document text into generation units:
// single pages and contiguous multi-page windows.
package window

import (
	"fmt"
	"iter"
	"strings"

	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// Separator joins page texts inside a window.
const Separator = "\n\n"

// Window is a contiguous run of pages. StartPage and EndPage are 0-based and
// inclusive.
type Window struct {
	StartPage int
	EndPage   int
	Text      string
}

// PageIndexes lists the pages covered by w in ascending order.
func (w Window) PageIndexes() []int {
	idx := make([]int, 0, w.EndPage-w.StartPage+1)
	for p := w.StartPage; p <= w.EndPage; p++ {
		idx = append(idx, p)
	}
	return idx
}

// Len is the number of pages in w.
func (w Window) Len() int {
	return w.EndPage - w.StartPage + 1
}

// Count returns the number of windows of size w over p pages, ceil(p/w).
// It returns 0 for p <= 0 or w < 1.
func Count(p, w int) int {
	if p <= 0 || w < 1 {
		return 0
	}
	return (p + w - 1) / w
}

// Windows returns the non-overlapping windows of size windowSize over
// pageTexts. The sequence is lazy and can be ranged over any number of
// times; window texts are built on demand. The last window may be shorter.
func Windows(pageTexts []string, windowSize int) (iter.Seq[Window], error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: window size %d", domain.ErrInvalidArgument, windowSize)
	}
	return func(yield func(Window) bool) {
		p := len(pageTexts)
		for start := 0; start < p; start += windowSize {
			end := min(start+windowSize, p) - 1
			w := Window{
				StartPage: start,
				EndPage:   end,
				Text:      strings.Join(pageTexts[start:end+1], Separator),
			}
			if !yield(w) {
				return
			}
		}
	}, nil
}

// Pages is the per-page view of pageTexts, equivalent to a window size of 1.
func Pages(pageTexts []string) iter.Seq[Window] {
	seq, _ := Windows(pageTexts, 1)
	return seq
}

// Collect materializes a window sequence.
func Collect(seq iter.Seq[Window]) []Window {
	var out []Window
	for w := range seq {
		out = append(out, w)
	}
	return out
}
