// Package extractor turns resume documents into plain text.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"resumelens/internal/errors"

	"github.com/h2non/filetype"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts the text of every page of a PDF, in page order
type PDFExtractor struct {
	logger *errors.Logger
}

// NewPDFExtractor creates a PDF extractor. A nil logger discards page warnings.
func NewPDFExtractor(logger *errors.Logger) *PDFExtractor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &PDFExtractor{logger: logger}
}

// IsPDF reports whether doc starts with the PDF magic number
func IsPDF(doc []byte) bool {
	return filetype.Is(doc, "pdf")
}

// Extract concatenates the plain text of all pages. A document with zero
// pages yields an empty string. Pages whose text cannot be decoded are
// skipped with a warning.
func (e *PDFExtractor) Extract(doc []byte) (text string, err error) {
	if len(doc) == 0 {
		return "", errors.NewExtractionError(errors.ErrCodeEmptyDocument, "document is empty", nil)
	}
	if !IsPDF(doc) {
		return "", errors.NewExtractionError(errors.ErrCodeInvalidDocumentFormat,
			"document is not a PDF", nil).
			WithContext("size", len(doc))
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewExtractionError(errors.ErrCodeDocumentUnreadable,
				"PDF parser failed", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentUnreadable,
			"cannot open PDF", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Skipping unreadable PDF page",
				"page", i,
				"pages", numPages,
				"error", err.Error())
			continue
		}
		sb.WriteString(pageText)
	}

	e.logger.Debug("PDF text extracted", "pages", numPages, "chars", sb.Len())
	return sb.String(), nil
}
