package analysis

import (
	"sort"
	"strings"

	"resumelens/internal/types"
)

// Rating thresholds in percent
const (
	strongMatchThreshold   = 70.0
	moderateMatchThreshold = 50.0
)

// MatchJob compares the keyword sets of a resume and a job description.
// The percentage is the share of job keywords found in the resume; an empty
// job keyword set yields zero with empty keyword lists.
func MatchJob(resumeText, jobDescription string, res Resources) *types.JobMatch {
	resumeTokens := res.Tokenizer.Tokenize(Normalize(resumeText))
	return matchTokens(resumeTokens, jobDescription, res)
}

func matchTokens(resumeTokens []string, jobDescription string, res Resources) *types.JobMatch {
	resumeSet := keywordSet(resumeTokens, res.Stopwords)
	jobSet := keywordSet(res.Tokenizer.Tokenize(Normalize(jobDescription)), res.Stopwords)

	match := &types.JobMatch{
		Matching: []string{},
		Missing:  []string{},
	}
	if len(jobSet) == 0 {
		match.Rating = RatingFor(0)
		return match
	}

	for word := range jobSet {
		if _, ok := resumeSet[word]; ok {
			match.Matching = append(match.Matching, word)
		} else {
			match.Missing = append(match.Missing, word)
		}
	}
	sort.Strings(match.Matching)
	sort.Strings(match.Missing)

	match.Percentage = 100 * float64(len(match.Matching)) / float64(len(jobSet))
	match.Rating = RatingFor(match.Percentage)
	return match
}

// keywordSet is the unique set of keyword tokens
func keywordSet(tokens []string, stopwords StopwordSet) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range keywordTokens(tokens, stopwords) {
		set[token] = struct{}{}
	}
	return set
}

// RatingFor buckets a match percentage into strong, moderate or weak
func RatingFor(percentage float64) string {
	switch {
	case percentage >= strongMatchThreshold:
		return types.RatingStrong
	case percentage >= moderateMatchThreshold:
		return types.RatingModerate
	default:
		return types.RatingWeak
	}
}

// HasJobDescription reports whether a job description carries any content
func HasJobDescription(jobDescription string) bool {
	return strings.TrimSpace(jobDescription) != ""
}
