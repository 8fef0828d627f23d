// Package analysis implements the resume analysis pipeline: normalization,
// contact field extraction, skill matching, word frequency, job matching and
// word cloud rendering.
package analysis

import (
	"time"

	"resumelens/internal/errors"
	"resumelens/internal/extractor"
	"resumelens/internal/types"
)

// ExtractionErrorPrefix starts the text of a result whose document could not
// be read.
const ExtractionErrorPrefix = "Error extracting text: "

// TextExtractor turns a raw document into plain text
type TextExtractor interface {
	Extract(doc []byte) (string, error)
}

// Analyzer runs the analysis pipeline. It is immutable after New and safe
// for concurrent use.
type Analyzer struct {
	taxonomy   Taxonomy
	matcher    *SkillMatcher
	resources  Resources
	topN       int
	extractor  TextExtractor
	visualizer *Visualizer
	wordCloud  bool
	logger     *errors.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTaxonomy replaces the default skill taxonomy
func WithTaxonomy(taxonomy Taxonomy) Option {
	return func(a *Analyzer) {
		a.taxonomy = taxonomy
	}
}

// WithResources sets already resolved linguistic resources. Without it New
// probes the bundled defaults.
func WithResources(res Resources) Option {
	return func(a *Analyzer) {
		a.resources = res
	}
}

// WithTopN sets the size of the word frequency table
func WithTopN(n int) Option {
	return func(a *Analyzer) {
		a.topN = n
	}
}

// WithExtractor replaces the PDF extractor
func WithExtractor(e TextExtractor) Option {
	return func(a *Analyzer) {
		a.extractor = e
	}
}

// WithVisualizer replaces the default word cloud renderer
func WithVisualizer(v *Visualizer) Option {
	return func(a *Analyzer) {
		a.visualizer = v
	}
}

// WithoutWordCloud disables rendering in Analyze and AnalyzeText
func WithoutWordCloud() Option {
	return func(a *Analyzer) {
		a.wordCloud = false
	}
}

// WithLogger sets the logger
func WithLogger(logger *errors.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer. Defaults are the built-in taxonomy, the probed
// bundled resources, the PDF extractor and an 800x400 word cloud.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		topN:      DefaultTopN,
		wordCloud: true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = errors.NewNopLogger()
	}
	if a.taxonomy.Len() == 0 {
		a.taxonomy = DefaultTaxonomy()
	}
	if a.resources.Tokenizer == nil {
		a.resources = ProbeResources(ResourceOptions{}, a.logger)
	}
	if a.topN <= 0 {
		a.topN = DefaultTopN
	}
	if a.extractor == nil {
		a.extractor = extractor.NewPDFExtractor(a.logger)
	}
	if a.visualizer == nil {
		v, err := NewVisualizer(DefaultVisualizerOptions(), a.logger)
		if err != nil {
			return nil, err
		}
		a.visualizer = v
	}

	a.matcher = NewSkillMatcher(a.taxonomy)
	return a, nil
}

// AnalyzeOption adjusts a single Analyze or AnalyzeText call
type AnalyzeOption func(*analyzeSettings)

type analyzeSettings struct {
	wordCloud bool
}

// SkipWordCloud leaves the result's word cloud empty
func SkipWordCloud() AnalyzeOption {
	return func(s *analyzeSettings) {
		s.wordCloud = false
	}
}

// IncludeWordCloud renders the word cloud even when the analyzer was built
// WithoutWordCloud
func IncludeWordCloud() AnalyzeOption {
	return func(s *analyzeSettings) {
		s.wordCloud = true
	}
}

// Analyze extracts the document text and runs every analysis stage over it.
// It never fails: an unreadable document yields a result whose text carries
// the extraction error and whose ExtractionFailed flag is set.
func (a *Analyzer) Analyze(doc []byte, jobDescription string, opts ...AnalyzeOption) *types.AnalysisResult {
	text, err := a.extractor.Extract(doc)
	if err != nil {
		a.logger.LogError(err, "Text extraction failed", "size", len(doc))
		result := a.AnalyzeText(ExtractionErrorText(err), jobDescription, opts...)
		result.ExtractionFailed = true
		return result
	}
	return a.AnalyzeText(text, jobDescription, opts...)
}

// AnalyzeText runs the pipeline over already extracted text
func (a *Analyzer) AnalyzeText(text, jobDescription string, opts ...AnalyzeOption) *types.AnalysisResult {
	settings := analyzeSettings{wordCloud: a.wordCloud}
	for _, opt := range opts {
		opt(&settings)
	}

	start := time.Now()
	tokens := a.resources.Tokenizer.Tokenize(Normalize(text))

	result := &types.AnalysisResult{
		Text:          text,
		Email:         ExtractEmail(text),
		Phone:         ExtractPhone(text),
		Skills:        a.matcher.Match(text),
		WordFrequency: rankWords(countableTokens(tokens, a.resources.Stopwords), a.topN),
	}
	if settings.wordCloud {
		result.WordCloud = a.visualizer.renderTokens(tokens, a.resources.Stopwords)
	}
	if HasJobDescription(jobDescription) {
		result.JobMatch = matchTokens(tokens, jobDescription, a.resources)
	}

	a.logger.Debug("Resume analyzed",
		"tokens", len(tokens),
		"skills", result.SkillCount(),
		"job_match", result.JobMatch != nil,
		"duration_ms", time.Since(start).Milliseconds())
	return result
}

// ExtractionErrorText is the text reported for a document that could not be read
func ExtractionErrorText(err error) string {
	return ExtractionErrorPrefix + err.Error()
}

// MatchSkills matches text against the analyzer's taxonomy
func (a *Analyzer) MatchSkills(text string) []types.SkillCategory {
	return a.matcher.Match(text)
}

// WordFrequency ranks the analyzer's top N content words of text
func (a *Analyzer) WordFrequency(text string) []types.WordCount {
	return WordFrequency(text, a.resources, a.topN)
}

// MatchJob compares a resume text against a job description
func (a *Analyzer) MatchJob(resumeText, jobDescription string) *types.JobMatch {
	return MatchJob(resumeText, jobDescription, a.resources)
}

// RenderWordCloud renders the word cloud of text as PNG
func (a *Analyzer) RenderWordCloud(text string) []byte {
	return a.visualizer.Render(text, a.resources)
}

// Taxonomy returns the active skill taxonomy
func (a *Analyzer) Taxonomy() Taxonomy {
	return a.taxonomy
}

// Resources returns the resolved linguistic resources
func (a *Analyzer) Resources() Resources {
	return a.resources
}

// TopN returns the size of the word frequency table
func (a *Analyzer) TopN() int {
	return a.topN
}
