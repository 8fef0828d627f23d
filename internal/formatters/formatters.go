package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumelens/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Data types with dedicated formatters
const (
	TypeAnalysisResult  = "AnalysisResult"
	TypeTaxonomyListing = "TaxonomyListing"
	TypeAny             = "any"
)

// Report defaults
const (
	DefaultReportKeywords      = 10
	DefaultKeywordDisplayLimit = 20
)

// ReportHeader is the title line of the plain-text analysis report
const ReportHeader = "AI RESUME ANALYZER - ANALYSIS REPORT"

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// ReportOptions bounds the lists shown in human-facing reports
type ReportOptions struct {
	// TopKeywords is the number of frequency entries in a report
	TopKeywords int
	// KeywordLimit caps the matching and missing keyword lists
	KeywordLimit int
}

// DefaultReportOptions returns the report limits of the original analyzer UI
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		TopKeywords:  DefaultReportKeywords,
		KeywordLimit: DefaultKeywordDisplayLimit,
	}
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a registry with the default report limits
func NewFormatterRegistry() *FormatterRegistry {
	return NewFormatterRegistryWithOptions(DefaultReportOptions())
}

// NewFormatterRegistryWithOptions creates a registry with the given report limits
func NewFormatterRegistryWithOptions(opts ReportOptions) *FormatterRegistry {
	if opts.TopKeywords <= 0 {
		opts.TopKeywords = DefaultReportKeywords
	}
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = DefaultKeywordDisplayLimit
	}

	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeAnalysisResult, &ReportTextFormatter{opts: opts})
	registry.RegisterFormatter("markdown", TypeAnalysisResult, &ReportMarkdownFormatter{opts: opts})
	registry.RegisterFormatter("text", TypeTaxonomyListing, &TaxonomyTextFormatter{})
	registry.RegisterFormatter("markdown", TypeTaxonomyListing, &TaxonomyMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data, dataType := normalizeData(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in alphabetical order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// normalizeData dereferences pointers to known types so formatters only see values
func normalizeData(data any) (any, string) {
	switch v := data.(type) {
	case types.AnalysisResult:
		return v, TypeAnalysisResult
	case *types.AnalysisResult:
		if v != nil {
			return *v, TypeAnalysisResult
		}
	case types.TaxonomyListing:
		return v, TypeTaxonomyListing
	case *types.TaxonomyListing:
		if v != nil {
			return *v, TypeTaxonomyListing
		}
	}
	return data, TypeAny
}

// CategoryTitle turns a taxonomy category name such as data_science into
// its display form, Data Science.
func CategoryTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func limitKeywords(keywords []string, limit int) []string {
	if len(keywords) > limit {
		return keywords[:limit]
	}
	return keywords
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// ReportTextFormatter renders the downloadable plain-text analysis report
type ReportTextFormatter struct {
	opts ReportOptions
}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString(ReportHeader + "\n")
	output.WriteString(strings.Repeat("=", 37) + "\n\n")

	output.WriteString("Contact Information:\n")
	output.WriteString(fmt.Sprintf("- Email: %s\n", result.Email))
	output.WriteString(fmt.Sprintf("- Phone: %s\n\n", result.Phone))

	output.WriteString("Skills Detected:\n")
	skillLines := make([]string, 0, len(result.Skills))
	for _, category := range result.Skills {
		skillLines = append(skillLines, fmt.Sprintf("- %s: %s", CategoryTitle(category.Category), strings.Join(category.Skills, ", ")))
	}
	output.WriteString(strings.Join(skillLines, "\n"))
	output.WriteString("\n\n")

	output.WriteString("Top Keywords:\n")
	keywordLines := make([]string, 0, rtf.opts.TopKeywords)
	for i, entry := range result.WordFrequency {
		if i == rtf.opts.TopKeywords {
			break
		}
		keywordLines = append(keywordLines, fmt.Sprintf("- %s: %d", entry.Word, entry.Count))
	}
	output.WriteString(strings.Join(keywordLines, "\n"))
	output.WriteString("\n\n")

	if result.JobMatch != nil {
		output.WriteString(fmt.Sprintf("Job Match: %.1f%%\n", result.JobMatch.Percentage))
	}

	return output.String(), nil
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return TypeAnalysisResult
}

// ReportMarkdownFormatter renders an analysis result as markdown
type ReportMarkdownFormatter struct {
	opts ReportOptions
}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Resume Analysis\n\n")
	if result.ExtractionFailed {
		output.WriteString(fmt.Sprintf("> **Warning:** %s\n\n", result.Text))
	}

	output.WriteString("## Contact Information\n\n")
	output.WriteString(fmt.Sprintf("- **Email:** %s\n", result.Email))
	output.WriteString(fmt.Sprintf("- **Phone:** %s\n\n", result.Phone))

	if result.JobMatch != nil {
		match := result.JobMatch
		output.WriteString("## Job Match\n\n")
		output.WriteString(fmt.Sprintf("**Match Score:** %.1f%% (%s)\n\n", match.Percentage, match.Rating))

		output.WriteString("### Matching Keywords\n\n")
		if len(match.Matching) == 0 {
			output.WriteString("No matching keywords found\n\n")
		} else {
			for _, keyword := range limitKeywords(match.Matching, rmf.opts.KeywordLimit) {
				output.WriteString(fmt.Sprintf("- ✓ %s\n", keyword))
			}
			output.WriteString("\n")
		}

		output.WriteString("### Missing Keywords\n\n")
		if len(match.Missing) == 0 {
			output.WriteString("No missing keywords!\n\n")
		} else {
			for _, keyword := range limitKeywords(match.Missing, rmf.opts.KeywordLimit) {
				output.WriteString(fmt.Sprintf("- ✗ %s\n", keyword))
			}
			output.WriteString("\n")
		}
	}

	output.WriteString("## Skills Detected\n\n")
	if len(result.Skills) == 0 {
		output.WriteString("No predefined skills detected.\n\n")
	}
	for _, category := range result.Skills {
		output.WriteString(fmt.Sprintf("### %s (%d skills)\n\n", CategoryTitle(category.Category), len(category.Skills)))
		for _, skill := range category.Skills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Top Keywords\n\n")
	if len(result.WordFrequency) > 0 {
		output.WriteString("| Word | Frequency |\n")
		output.WriteString("|------|-----------|\n")
		for _, entry := range result.WordFrequency {
			output.WriteString(fmt.Sprintf("| %s | %d |\n", entry.Word, entry.Count))
		}
	} else {
		output.WriteString("No keywords found.\n")
	}

	return output.String(), nil
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return TypeAnalysisResult
}

// TaxonomyTextFormatter lists the skill taxonomy as plain text
type TaxonomyTextFormatter struct{}

func (ttf *TaxonomyTextFormatter) Format(data any) (string, error) {
	listing, ok := data.(types.TaxonomyListing)
	if !ok {
		return "", fmt.Errorf("expected TaxonomyListing, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SKILL TAXONOMY ===\n\n")
	for _, category := range listing.Categories {
		output.WriteString(fmt.Sprintf("%s (%d terms):\n", CategoryTitle(category.Name), len(category.Terms)))
		output.WriteString(fmt.Sprintf("  %s\n\n", strings.Join(category.Terms, ", ")))
	}
	return output.String(), nil
}

func (ttf *TaxonomyTextFormatter) SupportedType() string {
	return TypeTaxonomyListing
}

// TaxonomyMarkdownFormatter lists the skill taxonomy as markdown
type TaxonomyMarkdownFormatter struct{}

func (tmf *TaxonomyMarkdownFormatter) Format(data any) (string, error) {
	listing, ok := data.(types.TaxonomyListing)
	if !ok {
		return "", fmt.Errorf("expected TaxonomyListing, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Skill Taxonomy\n\n")
	for _, category := range listing.Categories {
		output.WriteString(fmt.Sprintf("## %s\n\n", CategoryTitle(category.Name)))
		for _, term := range category.Terms {
			output.WriteString(fmt.Sprintf("- %s\n", term))
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (tmf *TaxonomyMarkdownFormatter) SupportedType() string {
	return TypeTaxonomyListing
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
