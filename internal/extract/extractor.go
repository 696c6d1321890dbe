package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/mornoningo-api/internal/store"
)

// DefaultMaxBytes bounds the size of a file read for extraction.
const DefaultMaxBytes int64 = 50 << 20

// ProgressFunc receives extraction progress as a percentage.
type ProgressFunc func(percent int)

func (p ProgressFunc) report(done, total int) {
	if p != nil && total > 0 {
		p(done * 100 / total)
	}
}

// Format is a supported upload format.
type Format string

// Supported formats
const (
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
)

const (
	pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	pdfContentType  = "application/pdf"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// FormatOf infers the format from a file name and content type, returning
// ErrUnsupportedFormat for anything else.
func FormatOf(name, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".pptx":
		return FormatPPTX, nil
	}
	switch contentType {
	case pdfContentType:
		return FormatPDF, nil
	case pptxContentType:
		return FormatPPTX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// sniff detects the format from the leading bytes of the file.
func sniff(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return FormatPDF, nil
	case bytes.HasPrefix(data, zipMagic):
		return FormatPPTX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Extractor reads stored uploads and splits them into page texts.
type Extractor struct {
	blobs    store.BlobStore
	maxBytes int64
	logger   *slog.Logger
}

// NewExtractor creates an Extractor reading from blobs.
func NewExtractor(blobs store.BlobStore, maxBytes int64, logger *slog.Logger) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		blobs:    blobs,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "extractor")),
	}
}

// ExtractPages returns the normalized text of each page of the stored file.
// progress, if non-nil, is called after each page.
func (e *Extractor) ExtractPages(ctx context.Context, fileID string, progress ProgressFunc) ([]string, error) {
	start := time.Now()

	rc, err := e.blobs.Open(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fileID, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrTooLarge, e.maxBytes)
	}

	format, err := sniff(data)
	if err != nil {
		return nil, err
	}

	var pages []string
	r := bytes.NewReader(data)
	switch format {
	case FormatPDF:
		pages, err = PDFPages(ctx, r, int64(len(data)), progress)
	case FormatPPTX:
		pages, err = SlidePages(ctx, r, int64(len(data)), progress)
	}
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "extracted document pages",
		"file_id", fileID,
		"format", string(format),
		"page_count", len(pages),
		"duration_ms", time.Since(start).Milliseconds())
	return pages, nil
}
