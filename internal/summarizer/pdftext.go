package summarizer

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pbberlin/pdf"
)

// ErrNoText reports a PDF whose pages yielded no extractable text.
var ErrNoText = errors.New("no text extracted from PDF")

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	return reader.NumPage(), nil
}

// ExtractText returns the text of the first maxPages pages and how many pages
// were read. Pages that cannot be decoded are skipped.
func ExtractText(data []byte, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if maxPages > 0 && numPages > maxPages {
		numPages = maxPages
	}

	var b strings.Builder

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := pageContent(&page)
		if err != nil {
			continue
		}

		b.WriteString(joinTexts(content.Text))
		b.WriteString("\n\n")
	}

	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", numPages, ErrNoText
	}

	return text, numPages, nil
}

// pageContent decodes a page, turning the reader's panics on malformed
// streams into errors.
func pageContent(p *pdf.Page) (cnt *pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page content: %v", r)
		}
	}()

	content := p.Content()

	return &content, nil
}

// joinTexts concatenates positioned glyph runs, starting a new line whenever
// the baseline moves.
func joinTexts(texts []pdf.Text) string {
	var b strings.Builder

	lastY := math.NaN()

	for _, t := range texts {
		if !math.IsNaN(lastY) && math.Abs(t.Y-lastY) > 1 {
			b.WriteByte('\n')
		}

		b.WriteString(t.S)
		lastY = t.Y
	}

	return b.String()
}
