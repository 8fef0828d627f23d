package analysis

import (
	"fmt"

	"resumelens/internal/errors"
)

// ResourceOptions selects the linguistic resources used by an Analyzer
type ResourceOptions struct {
	// StopwordsFile overrides the bundled English list when set
	StopwordsFile string
	// Tokenizer is one of auto, treebank or whitespace
	Tokenizer string
}

// Resources is the resolved set of linguistic resources. It is computed once
// and never changes afterwards.
type Resources struct {
	Stopwords      StopwordSet
	StopwordSource string
	Tokenizer      Tokenizer
	Degraded       bool
}

// Stopword sources reported in Resources
const (
	StopwordSourceBundled = "bundled"
	StopwordSourceFile    = "file"
	StopwordSourceMinimal = "minimal"
)

// ProbeResources resolves the stopword list and tokenizer strategy. Missing
// resources are replaced by the minimal stopword list and the whitespace
// tokenizer; the substitution is logged as a warning and never fails.
func ProbeResources(opts ResourceOptions, logger *errors.Logger) Resources {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	res := Resources{}
	res.Stopwords, res.StopwordSource = resolveStopwords(opts.StopwordsFile, logger)
	if res.StopwordSource == StopwordSourceMinimal {
		res.Degraded = true
	}

	tokenizer, degraded := resolveTokenizer(opts.Tokenizer, logger)
	res.Tokenizer = tokenizer
	res.Degraded = res.Degraded || degraded

	logger.Debug("Linguistic resources resolved",
		"stopword_source", res.StopwordSource,
		"stopword_count", res.Stopwords.Len(),
		"tokenizer", res.Tokenizer.Name(),
		"degraded", res.Degraded)

	return res
}

func resolveStopwords(path string, logger *errors.Logger) (StopwordSet, string) {
	if path == "" {
		return EnglishStopwords(), StopwordSourceBundled
	}

	set, err := LoadStopwords(path)
	if err != nil {
		logger.Warn("Stopword list unavailable, using minimal built-in set",
			"error_code", errors.ErrCodeResourceUnavailable,
			"file", path,
			"error", err.Error())
		return MinimalStopwords(), StopwordSourceMinimal
	}
	return set, StopwordSourceFile
}

func resolveTokenizer(mode string, logger *errors.Logger) (Tokenizer, bool) {
	switch mode {
	case TokenizerWhitespace:
		return NewWhitespaceTokenizer(), false
	case "", TokenizerAuto, TokenizerTreebank:
		tokenizer := NewTreebankTokenizer()
		if err := probeTokenizer(tokenizer); err != nil {
			logger.Warn("Linguistic tokenizer unavailable, using whitespace tokenizer",
				"error_code", errors.ErrCodeResourceUnavailable,
				"error", err.Error())
			return NewWhitespaceTokenizer(), true
		}
		return tokenizer, false
	default:
		logger.Warn("Unknown tokenizer mode, using whitespace tokenizer",
			"mode", mode,
			"error", fmt.Sprintf("expected one of %s, %s, %s", TokenizerAuto, TokenizerTreebank, TokenizerWhitespace))
		return NewWhitespaceTokenizer(), true
	}
}
