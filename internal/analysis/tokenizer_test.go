package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func treebankResources() Resources {
	res := whitespaceResources()
	res.Tokenizer = NewTreebankTokenizer()
	return res
}

func TestTreebankTokenizerKeepsAlphanumericWordsWhole(t *testing.T) {
	text := "i cannot stand gonna wanna python"

	assert.Equal(t,
		NewWhitespaceTokenizer().Tokenize(text),
		NewTreebankTokenizer().Tokenize(text))
}

func TestTreebankTokenizerSplitsPunctuatedFields(t *testing.T) {
	tokens := NewTreebankTokenizer().Tokenize("senior engineer, python")

	assert.Contains(t, tokens, "engineer")
	assert.NotContains(t, tokens, "engineer,")
	assert.Equal(t, "python", tokens[len(tokens)-1])
}

func TestTokenizersAgreeOnAlphabeticInput(t *testing.T) {
	resume := "I cannot stand legacy code but gonna learn rust and wanna ship python python services"
	job := "cannot wait gonna build python rust services wanna grow"

	assert.Equal(t,
		WordFrequency(resume, whitespaceResources(), 20),
		WordFrequency(resume, treebankResources(), 20))
	assert.Equal(t,
		MatchJob(resume, job, whitespaceResources()),
		MatchJob(resume, job, treebankResources()))

	match := MatchJob(resume, job, treebankResources())
	assert.Contains(t, match.Matching, "cannot")
	assert.Contains(t, match.Matching, "gonna")
	assert.Contains(t, match.Matching, "wanna")
}
