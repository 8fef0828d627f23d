package analysis

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"resumelens/internal/testutil"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = "Jane Doe jane.doe@example.com 555-123-4567 " +
	"Experienced in Python, Docker and React. Python developer."

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()

	analyzer, err := New(append([]Option{WithResources(whitespaceResources())}, opts...)...)
	require.NoError(t, err)
	return analyzer
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract([]byte) (string, error) {
	return s.text, s.err
}

func TestAnalyzeDocument(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	result := analyzer.Analyze(testutil.MinimalPDF(sampleResume), "Looking for Python and Kubernetes experience")

	assert.False(t, result.ExtractionFailed)
	assert.Contains(t, result.Text, "Experienced in Python")
	assert.Equal(t, "jane.doe@example.com", result.Email)
	assert.Equal(t, "555-123-4567", result.Phone)
	assert.Equal(t, []types.SkillCategory{
		{Category: "programming", Skills: []string{"python"}},
		{Category: "web", Skills: []string{"react"}},
		{Category: "cloud", Skills: []string{"docker"}},
	}, result.Skills)
	assert.Equal(t, []types.WordCount{
		{Word: "python", Count: 2},
		{Word: "jane", Count: 1},
		{Word: "doe", Count: 1},
		{Word: "experienced", Count: 1},
		{Word: "docker", Count: 1},
	}, result.WordFrequency)

	require.NotNil(t, result.JobMatch)
	assert.Equal(t, []string{"python"}, result.JobMatch.Matching)
	assert.Equal(t, []string{"experience", "kubernetes", "looking"}, result.JobMatch.Missing)
	assert.InDelta(t, 25.0, result.JobMatch.Percentage, 0.001)
	assert.Equal(t, types.RatingWeak, result.JobMatch.Rating)

	img := decodePNG(t, result.WordCloud)
	assert.Equal(t, image.Rect(0, 0, 800, 400), img.Bounds())
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	result := analyzer.Analyze(testutil.MinimalPDF(), "")

	assert.False(t, result.ExtractionFailed)
	assert.Empty(t, result.Text)
	assert.Equal(t, NotFound, result.Email)
	assert.Equal(t, NotFound, result.Phone)
	assert.Empty(t, result.Skills)
	assert.Empty(t, result.WordFrequency)
	assert.Nil(t, result.JobMatch)

	img := decodePNG(t, result.WordCloud)
	assert.Equal(t, image.Rect(0, 0, 800, 400), img.Bounds())
	assert.True(t, isBlank(img))
}

func TestAnalyzeExtractionFailure(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	result := analyzer.Analyze([]byte("plain text pretending to be a resume"), "python developer")

	assert.True(t, result.ExtractionFailed)
	assert.True(t, strings.HasPrefix(result.Text, ExtractionErrorPrefix))
	assert.Contains(t, result.Text, "document is not a PDF")
	assert.Equal(t, NotFound, result.Email)
	assert.NotEmpty(t, result.WordCloud)
	require.NotNil(t, result.JobMatch)
}

func TestAnalyzeUsesCustomExtractor(t *testing.T) {
	analyzer := newTestAnalyzer(t, WithExtractor(stubExtractor{text: "Kubernetes operator written in Go"}))

	result := analyzer.Analyze([]byte("ignored"), "")
	assert.Equal(t, "Kubernetes operator written in Go", result.Text)
	assert.Equal(t, []types.SkillCategory{
		{Category: "programming", Skills: []string{"go"}},
		{Category: "cloud", Skills: []string{"kubernetes"}},
	}, result.Skills)

	failing := newTestAnalyzer(t, WithExtractor(stubExtractor{err: fmt.Errorf("scanner offline")}))
	result = failing.Analyze(nil, "")
	assert.True(t, result.ExtractionFailed)
	assert.Equal(t, "Error extracting text: scanner offline", result.Text)
}

func TestAnalyzeTextJobMatchOnlyWithDescription(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	assert.Nil(t, analyzer.AnalyzeText(sampleResume, "").JobMatch)
	assert.Nil(t, analyzer.AnalyzeText(sampleResume, " \n\t").JobMatch)

	match := analyzer.AnalyzeText(sampleResume, "the and of").JobMatch
	require.NotNil(t, match)
	assert.Zero(t, match.Percentage)
	assert.Empty(t, match.Matching)
	assert.Empty(t, match.Missing)
}

func TestAnalyzeWordCloudOptions(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	assert.Nil(t, analyzer.AnalyzeText(sampleResume, "", SkipWordCloud()).WordCloud)

	disabled := newTestAnalyzer(t, WithoutWordCloud())
	assert.Nil(t, disabled.AnalyzeText(sampleResume, "").WordCloud)
	assert.NotEmpty(t, disabled.RenderWordCloud(sampleResume))
	assert.NotEmpty(t, disabled.AnalyzeText(sampleResume, "", IncludeWordCloud()).WordCloud)
}

func TestAnalyzerOptions(t *testing.T) {
	taxonomy := exampleTaxonomy(t)
	analyzer := newTestAnalyzer(t, WithTaxonomy(taxonomy), WithTopN(1))

	assert.Equal(t, taxonomy, analyzer.Taxonomy())
	assert.Equal(t, 1, analyzer.TopN())
	assert.Equal(t, TokenizerWhitespace, analyzer.Resources().Tokenizer.Name())
	assert.Equal(t, []types.WordCount{{Word: "python", Count: 2}}, analyzer.WordFrequency(sampleResume))
	assert.Len(t, analyzer.MatchSkills(sampleResume), 3)
	assert.Equal(t, []string{"python"}, analyzer.MatchJob(sampleResume, "python").Matching)
}

func TestNewAnalyzerDefaults(t *testing.T) {
	analyzer, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultTaxonomy(), analyzer.Taxonomy())
	assert.Equal(t, DefaultTopN, analyzer.TopN())
	assert.Equal(t, StopwordSourceBundled, analyzer.Resources().StopwordSource)
	assert.NotNil(t, analyzer.Resources().Tokenizer)
}

func TestAnalyzerConcurrentUse(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	doc := testutil.MinimalPDF(sampleResume)

	var wg sync.WaitGroup
	results := make([]*types.AnalysisResult, 6)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = analyzer.Analyze(doc, "python docker")
		}()
	}
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, results[0].WordFrequency, result.WordFrequency)
		assert.Equal(t, results[0].JobMatch, result.JobMatch)
		assert.Equal(t, 100.0, result.JobMatch.Percentage)
	}
}
