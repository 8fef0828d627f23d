package analysis

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	"gopkg.in/yaml.v3"
)

// Category is a named, ordered list of skill terms
type Category struct {
	Name  string
	Terms []string
}

// Taxonomy is an ordered, immutable list of skill categories
type Taxonomy struct {
	categories []Category
}

// NewTaxonomy validates and copies the given categories. Terms are
// lowercased and trimmed; duplicate terms within a category are dropped.
func NewTaxonomy(categories ...Category) (Taxonomy, error) {
	if len(categories) == 0 {
		return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
			"taxonomy must contain at least one category", nil)
	}

	seen := make(map[string]bool, len(categories))
	out := make([]Category, 0, len(categories))
	for _, category := range categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
				"taxonomy category name cannot be empty", nil)
		}
		if seen[name] {
			return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
				fmt.Sprintf("duplicate taxonomy category: %s", name), nil)
		}
		seen[name] = true

		terms := make([]string, 0, len(category.Terms))
		for _, term := range category.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" || slices.Contains(terms, term) {
				continue
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
				fmt.Sprintf("taxonomy category %s has no terms", name), nil)
		}

		out = append(out, Category{Name: name, Terms: terms})
	}

	return Taxonomy{categories: out}, nil
}

// Categories returns a copy of the taxonomy categories in order
func (t Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, category := range t.categories {
		out[i] = Category{Name: category.Name, Terms: slices.Clone(category.Terms)}
	}
	return out
}

// Len returns the number of categories
func (t Taxonomy) Len() int {
	return len(t.categories)
}

// Listing converts the taxonomy to its presentation form
func (t Taxonomy) Listing() types.TaxonomyListing {
	listing := types.TaxonomyListing{Categories: make([]types.TaxonomyCategory, 0, len(t.categories))}
	for _, category := range t.categories {
		listing.Categories = append(listing.Categories, types.TaxonomyCategory{
			Name:  category.Name,
			Terms: slices.Clone(category.Terms),
		})
	}
	return listing
}

// DefaultTaxonomy returns the built-in skill taxonomy
func DefaultTaxonomy() Taxonomy {
	taxonomy, err := NewTaxonomy(
		Category{Name: "programming", Terms: []string{
			"python", "java", "javascript", "c++", "c#", "ruby", "php", "swift",
			"kotlin", "go", "rust", "typescript", "sql", "r",
		}},
		Category{Name: "web", Terms: []string{
			"html", "css", "react", "angular", "vue", "nodejs", "django", "flask",
			"fastapi", "express", "next.js", "bootstrap", "tailwind",
		}},
		Category{Name: "data_science", Terms: []string{
			"machine learning", "deep learning", "nlp", "tensorflow", "pytorch",
			"pandas", "numpy", "scikit-learn", "data analysis", "statistics",
			"matplotlib", "seaborn", "tableau", "power bi",
		}},
		Category{Name: "cloud", Terms: []string{
			"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "terraform",
			"ansible", "cicd", "devops",
		}},
		Category{Name: "database", Terms: []string{
			"mongodb", "postgresql", "mysql", "redis", "elasticsearch", "oracle",
			"cassandra", "dynamodb",
		}},
		Category{Name: "soft_skills", Terms: []string{
			"leadership", "communication", "teamwork", "problem solving",
			"analytical", "creative", "management", "agile", "scrum",
		}},
	)
	if err != nil {
		panic(fmt.Sprintf("built-in taxonomy is invalid: %v", err))
	}
	return taxonomy
}

// LoadTaxonomy reads a YAML taxonomy file. The file is a mapping of category
// name to a list of terms; category order in the file is preserved.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot read taxonomy file: %s", path), err)
	}
	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes a YAML taxonomy document
func ParseTaxonomy(data []byte) (Taxonomy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
			"taxonomy is not valid YAML", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
			"taxonomy must be a mapping of category to terms", nil)
	}

	root := doc.Content[0]
	categories := make([]Category, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.SequenceNode {
			return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
				fmt.Sprintf("category %s must be a list of terms (line %d)", key.Value, value.Line), nil)
		}

		terms := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return Taxonomy{}, errors.NewValidationError(errors.ErrCodeInvalidTaxonomy,
					fmt.Sprintf("category %s contains a non-scalar term (line %d)", key.Value, item.Line), nil)
			}
			terms = append(terms, item.Value)
		}
		categories = append(categories, Category{Name: key.Value, Terms: terms})
	}

	return NewTaxonomy(categories...)
}
