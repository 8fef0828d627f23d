package analysis

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/jdkato/prose/tokenize"
)

// Tokenizer modes accepted in configuration
const (
	TokenizerAuto       = "auto"
	TokenizerTreebank   = "treebank"
	TokenizerWhitespace = "whitespace"
)

// probeSample is plain alphabetic text on which every tokenizer variant must
// agree with a whitespace split.
const probeSample = "senior python developer with docker and kubernetes experience cannot gonna wanna"

// Tokenizer splits normalized text into tokens
type Tokenizer interface {
	Tokenize(text string) []string
	Name() string
}

type whitespaceTokenizer struct{}

// NewWhitespaceTokenizer returns the naive whitespace tokenizer
func NewWhitespaceTokenizer() Tokenizer {
	return whitespaceTokenizer{}
}

func (whitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

func (whitespaceTokenizer) Name() string {
	return TokenizerWhitespace
}

// treebankTokenizer uses the Penn Treebank word tokenizer from prose on fields
// holding punctuation. Alphanumeric fields are kept whole, so plain words give
// the same tokens as a whitespace split.
type treebankTokenizer struct {
	tokenizer *tokenize.TreebankWordTokenizer
}

// NewTreebankTokenizer returns the linguistic tokenizer
func NewTreebankTokenizer() Tokenizer {
	return &treebankTokenizer{tokenizer: tokenize.NewTreebankWordTokenizer()}
}

func (t *treebankTokenizer) Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if isAlphanumeric(field) {
			tokens = append(tokens, field)
			continue
		}
		for _, token := range t.tokenizer.Tokenize(field) {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (t *treebankTokenizer) Name() string {
	return TokenizerTreebank
}

// probeTokenizer checks that a tokenizer runs and agrees with a whitespace
// split on plain alphabetic input.
func probeTokenizer(t Tokenizer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer %s panicked: %v", t.Name(), r)
		}
	}()

	got := t.Tokenize(probeSample)
	if !slices.Equal(got, strings.Fields(probeSample)) {
		return fmt.Errorf("tokenizer %s diverges from whitespace split on probe sample: %v", t.Name(), got)
	}
	return nil
}
