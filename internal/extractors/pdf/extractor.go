// Package pdf provides a TextExtractor adapter built on
// github.com/ledongthuc/pdf.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driven"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// titleMaxLength bounds the first-line title fallback.
const titleMaxLength = 100

// Extractor extracts per-page text and metadata from PDF streams.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the PDF and returns ordered pages plus metadata.
// Individual corrupt pages are skipped and recorded as warnings;
// an unparseable stream or a zero-page document fails with
// domain.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (*domain.Extraction, error) {
	reader, err := openReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrExtraction)
	}

	meta := readInfo(reader)
	meta.PageCount = pageCount

	pages := make([]domain.Page, 0, pageCount)
	for num := 1; num <= pageCount; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := extractPage(reader, num)
		if err != nil {
			logger.Warn("Skipping corrupt page %d: %v", num, err)
			meta.Warnings = append(meta.Warnings, fmt.Sprintf("page %d: %v", num, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		meta.TotalCharacters += len(text)
		meta.TotalWords += len(strings.Fields(text))
		pages = append(pages, domain.Page{Number: num, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrExtraction)
	}

	if meta.Title == "" {
		meta.Title = FallbackTitle(pages[0].Text)
	}

	return &domain.Extraction{Pages: pages, Metadata: meta}, nil
}

// openReader wraps pdf.NewReader, converting its panics on malformed
// input into errors.
func openReader(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	return pdf.NewReader(r, size)
}

// extractPage returns the plain text of one page, recovering from the
// parser's panics so one corrupt page cannot abort the document.
func extractPage(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("extract page: %v", rec)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", num)
	}
	return page.GetPlainText(nil)
}

// readInfo pulls document metadata from the PDF Info dictionary.
func readInfo(reader *pdf.Reader) domain.ExtractionMetadata {
	var meta domain.ExtractionMetadata

	defer func() {
		// Malformed Info dictionaries are not worth failing over.
		_ = recover()
	}()

	info := reader.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return meta
	}

	meta.Title = infoString(info, "Title")
	meta.Author = infoString(info, "Author")
	meta.Subject = infoString(info, "Subject")
	meta.Creator = infoString(info, "Creator")
	meta.Producer = infoString(info, "Producer")
	meta.CreationDate = parsePDFDate(infoString(info, "CreationDate"))
	meta.ModificationDate = parsePDFDate(infoString(info, "ModDate"))

	return meta
}

// infoString reads a string entry from the Info dictionary.
func infoString(info pdf.Value, key string) string {
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

// FallbackTitle derives a title from the first non-empty line of page
// one, truncated to 100 characters. Used when the PDF carries no
// embedded title.
func FallbackTitle(pageText string) string {
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > titleMaxLength {
			line = line[:titleMaxLength]
		}
		return line
	}
	return ""
}

// parsePDFDate parses PDF date strings of the form
// "D:YYYYMMDDHHmmSS+HH'mm'". Returns the zero time on failure.
func parsePDFDate(s string) time.Time {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return time.Time{}
	}

	// Pad the optional components with their defaults.
	digits := s
	if idx := strings.IndexAny(digits, "+-Z'"); idx >= 0 {
		digits = digits[:idx]
	}
	const full = "20060102150405"
	if len(digits) > len(full) {
		digits = digits[:len(full)]
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return time.Time{}
		}
	}
	digits += "20060101000000"[len(digits):]

	t, err := time.Parse(full, digits)
	if err != nil {
		return time.Time{}
	}
	return t
}
