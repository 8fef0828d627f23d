package analysis

import (
	"testing"

	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestMatchJob(t *testing.T) {
	match := MatchJob("python docker react", "python kubernetes react", whitespaceResources())

	assert.Equal(t, []string{"python", "react"}, match.Matching)
	assert.Equal(t, []string{"kubernetes"}, match.Missing)
	assert.InDelta(t, 66.7, match.Percentage, 0.05)
	assert.Equal(t, types.RatingModerate, match.Rating)
}

func TestMatchJobEmptyJobKeywords(t *testing.T) {
	for _, jd := range []string{"", "   ", "the and of to a"} {
		match := MatchJob("python docker react", jd, whitespaceResources())

		assert.Zero(t, match.Percentage)
		assert.Equal(t, []string{}, match.Matching)
		assert.Equal(t, []string{}, match.Missing)
		assert.Equal(t, types.RatingWeak, match.Rating)
	}
}

func TestMatchJobSetAlgebra(t *testing.T) {
	cases := []struct {
		resume string
		job    string
	}{
		{resume: "python docker react", job: "python kubernetes react"},
		{resume: "", job: "golang engineer with grpc"},
		{resume: "golang grpc kafka engineer", job: "golang engineer with grpc"},
		{resume: "c++ c# next.js", job: "next.js c++ rust"},
		{resume: "Python PYTHON python", job: "python, python and python"},
	}

	res := whitespaceResources()
	for _, c := range cases {
		match := MatchJob(c.resume, c.job, res)
		jobSet := keywordSet(res.Tokenizer.Tokenize(Normalize(c.job)), res.Stopwords)
		resumeSet := keywordSet(res.Tokenizer.Tokenize(Normalize(c.resume)), res.Stopwords)

		assert.GreaterOrEqual(t, match.Percentage, 0.0)
		assert.LessOrEqual(t, match.Percentage, 100.0)
		assert.Len(t, jobSet, len(match.Matching)+len(match.Missing))
		assert.IsNonDecreasing(t, match.Matching)
		assert.IsNonDecreasing(t, match.Missing)

		for _, word := range match.Matching {
			assert.Contains(t, jobSet, word)
			assert.Contains(t, resumeSet, word)
		}
		for _, word := range match.Missing {
			assert.Contains(t, jobSet, word)
			assert.NotContains(t, resumeSet, word)
		}
	}
}

func TestMatchJobKeepsNonAlphabeticKeywords(t *testing.T) {
	match := MatchJob("expert in c++ and next.js", "next.js c++ rust", whitespaceResources())

	assert.Equal(t, []string{"c++", "next.js"}, match.Matching)
	assert.Equal(t, []string{"rust"}, match.Missing)
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		percentage float64
		expected   string
	}{
		{100, types.RatingStrong},
		{70, types.RatingStrong},
		{69.9, types.RatingModerate},
		{50, types.RatingModerate},
		{49.9, types.RatingWeak},
		{0, types.RatingWeak},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RatingFor(tt.percentage), "percentage %v", tt.percentage)
	}
}

func TestHasJobDescription(t *testing.T) {
	assert.False(t, HasJobDescription(""))
	assert.False(t, HasJobDescription(" \n\t "))
	assert.True(t, HasJobDescription(" go "))
}
