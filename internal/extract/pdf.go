package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDFPages extracts the plain text of every page, in page order. Pages whose
// text cannot be decoded yield an empty string so indexes stay aligned with
// the document.
func PDFPages(ctx context.Context, r io.ReaderAt, size int64, progress ProgressFunc) (pages []string, err error) {
	// the parser panics on some corrupt inputs
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("%w: pdf parser panic: %v", ErrMalformed, p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create PDF reader: %v", ErrMalformed, err)
	}

	n := reader.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}

	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if !page.V.IsNull() {
			fonts := make(map[string]*pdf.Font)
			if text, err := page.GetPlainText(fonts); err == nil {
				pages[i-1] = Normalize(text)
			}
		}
		progress.report(i, n)
	}
	return pages, nil
}
