package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "first match wins", text: "contact me at a.b@example.com or c@d.org", expected: "a.b@example.com"},
		{name: "plus addressing", text: "jane+jobs@mail.example.io", expected: "jane+jobs@mail.example.io"},
		{name: "no at sign", text: "Jane Doe, Software Engineer", expected: NotFound},
		{name: "missing tld", text: "jane@localhost", expected: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractEmail(tt.text))
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "international with area code", text: "Call +1 (555) 123-4567 today", expected: "+1 (555) 123-4567"},
		{name: "dotted", text: "Phone 555.123.4567", expected: "555.123.4567"},
		{name: "plain digits", text: "5551234567", expected: "5551234567"},
		{name: "no digits", text: "reachable by email only", expected: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPhone(tt.text))
		})
	}
}
