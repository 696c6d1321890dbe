package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/mornoningo-api/internal/platform/memory"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"nul bytes", "a\x00b", "a b"},
		{"carriage returns", "line1\r\nline2\r\r\rline3", "line1\n\nline2\nline3"},
		{"blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"trim", "  \n text \n ", "text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	f, err := FormatOf("Lecture.PDF", "")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = FormatOf("deck.pptx", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, FormatPPTX, f)

	f, err = FormatOf("upload", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = FormatOf("notes.docx", "application/msword")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

const slideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>%s</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func slide(runs ...string) string {
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "<a:p><a:r><a:rPr lang=\"en-US\"/><a:t>%s</a:t></a:r></a:p>", r)
	}
	return fmt.Sprintf(slideXML, b.String())
}

func buildPPTX(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleDeck(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"ppt/slides/slide10.xml":            slide("Ten"),
		"ppt/slides/slide2.xml":             slide("Second &amp; last &lt;b&gt;", "   "),
		"ppt/slides/slide1.xml":             slide("Title", "Subtitle"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": slide("layout text"),
		"[Content_Types].xml":               "<Types/>",
	}
	order := []string{
		"[Content_Types].xml",
		"ppt/slides/slide10.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/slides/slide1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
	}
	return buildPPTX(t, files, order)
}

func TestSlidePages(t *testing.T) {
	t.Parallel()

	data := sampleDeck(t)
	var progress []int
	pages, err := SlidePages(context.Background(), bytes.NewReader(data), int64(len(data)),
		func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Title\nSubtitle", "Second & last <b>", "Ten"}, pages)
	assert.Equal(t, []int{33, 66, 100}, progress)
}

func TestSlidePagesErrors(t *testing.T) {
	t.Parallel()

	empty := buildPPTX(t, map[string]string{"ppt/presentation.xml": "<p/>"}, []string{"ppt/presentation.xml"})
	_, err := SlidePages(context.Background(), bytes.NewReader(empty), int64(len(empty)), nil)
	assert.ErrorIs(t, err, ErrNoPages)

	broken := buildPPTX(t, map[string]string{"ppt/slides/slide1.xml": "<a:t>unclosed"}, []string{"ppt/slides/slide1.xml"})
	_, err = SlidePages(context.Background(), bytes.NewReader(broken), int64(len(broken)), nil)
	assert.ErrorIs(t, err, ErrMalformed)

	junk := []byte("not a zip")
	_, err = SlidePages(context.Background(), bytes.NewReader(junk), int64(len(junk)), nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(texts ...string) []byte {
	objs := []string{"<< /Type /Catalog /Pages 2 0 R >>"}
	kids := make([]string, len(texts))
	for i := range texts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(texts)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range texts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestPDFPages(t *testing.T) {
	t.Parallel()

	data := buildPDF("Hello photosynthesis", "", "Chlorophyll absorbs light")
	var progress []int
	pages, err := PDFPages(context.Background(), bytes.NewReader(data), int64(len(data)),
		func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Contains(t, pages[0], "photosynthesis")
	assert.Empty(t, pages[1])
	assert.Contains(t, pages[2], "Chlorophyll")
	assert.Equal(t, []int{33, 66, 100}, progress)
}

func TestPDFPagesMalformed(t *testing.T) {
	t.Parallel()

	junk := []byte("%PDF-1.4\nthis is not really a pdf")
	_, err := PDFPages(context.Background(), bytes.NewReader(junk), int64(len(junk)), nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractorExtractPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewExtractor(blobs, 1<<20, logger)

	deckID, err := blobs.Put(ctx, "deck.pptx", bytes.NewReader(sampleDeck(t)))
	require.NoError(t, err)
	pages, err := e.ExtractPages(ctx, deckID, nil)
	require.NoError(t, err)
	assert.Len(t, pages, 3)

	pdfID, err := blobs.Put(ctx, "doc.pdf", bytes.NewReader(buildPDF("one", "two")))
	require.NoError(t, err)
	pages, err = e.ExtractPages(ctx, pdfID, nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	txtID, err := blobs.Put(ctx, "notes.txt", strings.NewReader("plain text"))
	require.NoError(t, err)
	_, err = e.ExtractPages(ctx, txtID, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = e.ExtractPages(ctx, "missing", nil)
	assert.ErrorIs(t, err, store.ErrBlobNotFound)

	small := NewExtractor(blobs, 16, logger)
	_, err = small.ExtractPages(ctx, pdfID, nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractorHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := sampleDeck(t)
	_, err := SlidePages(ctx, bytes.NewReader(data), int64(len(data)), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
