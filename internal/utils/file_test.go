package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0600))

	assert.NoError(t, ValidateInputFile(file))

	tests := []struct {
		name     string
		filename string
		errorMsg string
	}{
		{name: "empty name", filename: "", errorMsg: "filename cannot be empty"},
		{name: "missing file", filename: filepath.Join(dir, "missing.pdf"), errorMsg: "file does not exist"},
		{name: "directory", filename: dir, errorMsg: "path is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.filename)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "nested", "out.txt")

	require.NoError(t, ValidateOutputFile(target))
	assert.DirExists(t, filepath.Dir(target))
	assert.NoError(t, ValidateOutputFile(""))
}

func TestIsPDFFile(t *testing.T) {
	assert.True(t, IsPDFFile("resume.pdf"))
	assert.True(t, IsPDFFile("RESUME.PDF"))
	assert.False(t, IsPDFFile("resume.docx"))
	assert.False(t, IsPDFFile("resume"))
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{format: "text", expected: filepath.Join("out", "jane.report.txt")},
		{format: "markdown", expected: filepath.Join("out", "jane.report.md")},
		{format: "json", expected: filepath.Join("out", "jane.report.json")},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReportFileName(filepath.Join("cv", "jane.pdf"), "out", tt.format))
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10<<20))
}
