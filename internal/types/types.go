package types

// NotFound is reported for contact fields absent from the resume text
const NotFound = "Not found"

// Match ratings used when presenting a job match
const (
	RatingStrong   = "strong"
	RatingModerate = "moderate"
	RatingWeak     = "weak"
)

// SkillCategory holds the skills matched for one taxonomy category
type SkillCategory struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// WordCount is one entry of the ranked word frequency table
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// JobMatch represents the keyword overlap between a resume and a job description
type JobMatch struct {
	Percentage float64  `json:"percentage"`
	Matching   []string `json:"matchingKeywords"`
	Missing    []string `json:"missingKeywords"`
	Rating     string   `json:"rating"`
}

// AnalysisResult is the output of a single resume analysis
type AnalysisResult struct {
	Text             string          `json:"text"`
	ExtractionFailed bool            `json:"extractionFailed,omitempty"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Skills           []SkillCategory `json:"skills"`
	WordFrequency    []WordCount     `json:"wordFrequency"`
	WordCloud        []byte          `json:"wordCloud,omitempty"`
	JobMatch         *JobMatch       `json:"jobMatch,omitempty"`
}

// SkillCount returns the total number of matched skills across categories
func (r *AnalysisResult) SkillCount() int {
	total := 0
	for _, category := range r.Skills {
		total += len(category.Skills)
	}
	return total
}

// TaxonomyCategory is the presentation form of one taxonomy category
type TaxonomyCategory struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// TaxonomyListing lists the active skill taxonomy
type TaxonomyListing struct {
	Categories []TaxonomyCategory `json:"categories"`
}

// AnalyzeRequest is the JSON request body accepted by the analysis endpoints
type AnalyzeRequest struct {
	ResumeURL      string `json:"resumeUrl"`
	JobDescription string `json:"jobDescription"`
}
