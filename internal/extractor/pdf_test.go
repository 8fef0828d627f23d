package extractor

import (
	stderrors "errors"
	"strings"
	"testing"

	"resumelens/internal/errors"
	"resumelens/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected *errors.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestPDFExtractorExtractsPagesInOrder(t *testing.T) {
	doc := testutil.MinimalPDF("Experienced in Python", "Docker and React")

	text, err := NewPDFExtractor(nil).Extract(doc)
	require.NoError(t, err)

	assert.Contains(t, text, "Experienced in Python")
	assert.Contains(t, text, "Docker and React")
	assert.Less(t, strings.Index(text, "Python"), strings.Index(text, "Docker"))
}

func TestPDFExtractorZeroPages(t *testing.T) {
	text, err := NewPDFExtractor(nil).Extract(testutil.MinimalPDF())
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPDFExtractorErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  []byte
		code string
	}{
		{name: "empty document", doc: nil, code: errors.ErrCodeEmptyDocument},
		{name: "plain text", doc: []byte("just a text file, not a resume PDF"), code: errors.ErrCodeInvalidDocumentFormat},
		{name: "truncated pdf", doc: []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"), code: errors.ErrCodeDocumentUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := NewPDFExtractor(nil).Extract(tt.doc)
			require.Error(t, err)
			assert.Empty(t, text)
			assert.True(t, errors.IsType(err, errors.ErrorTypeExtraction))
			requireErrorCode(t, err, tt.code)
		})
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF(testutil.MinimalPDF("x")))
	assert.False(t, IsPDF([]byte("hello")))
	assert.False(t, IsPDF(nil))
}
