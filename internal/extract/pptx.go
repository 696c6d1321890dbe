package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const drawingMLNamespace = "http://schemas.openxmlformats.org/drawingml/2006/main"

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type slideFile struct {
	num  int
	file *zip.File
}

// SlidePages extracts the text runs of every slide, ordered by slide number.
func SlidePages(ctx context.Context, r io.ReaderAt, size int64, progress ProgressFunc) ([]string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PPTX archive: %v", ErrMalformed, err)
	}

	var slides []slideFile
	for _, f := range archive.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	if len(slides) == 0 {
		return nil, ErrNoPages
	}
	slices.SortFunc(slides, func(a, b slideFile) int { return a.num - b.num })

	pages := make([]string, len(slides))
	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := slideText(s.file)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		pages[i] = text
		progress.report(i+1, len(slides))
	}
	return pages, nil
}

// slideText joins the slide's <a:t> runs with newlines.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer func() { _ = rc.Close() }()

	var runs []string
	var run *strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isTextRun(t.Name) {
				run = &strings.Builder{}
			}
		case xml.CharData:
			if run != nil {
				run.Write(t)
			}
		case xml.EndElement:
			if isTextRun(t.Name) && run != nil {
				runs = append(runs, run.String())
				run = nil
			}
		}
	}
	return Normalize(strings.Join(runs, "\n")), nil
}

func isTextRun(name xml.Name) bool {
	return name.Local == "t" && name.Space == drawingMLNamespace
}
