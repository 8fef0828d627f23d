package analysis

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed data/stopwords_english.txt
var englishStopwordsFile string

// minimalStopwords is used when the full stopword list cannot be loaded
var minimalStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she",
	"her", "hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into", "through",
	"during", "before", "after", "above", "below", "to", "from", "up", "down",
	"in", "out", "on", "off", "over", "under", "again", "further", "then", "once",
}

// StopwordSet is an immutable set of words excluded from counting and matching
type StopwordSet struct {
	words map[string]struct{}
}

// NewStopwordSet builds a set from the given words, lowercased and trimmed
func NewStopwordSet(words ...string) StopwordSet {
	set := StopwordSet{words: make(map[string]struct{}, len(words))}
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			set.words[word] = struct{}{}
		}
	}
	return set
}

// Contains reports whether word is a stopword
func (s StopwordSet) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stopwords
func (s StopwordSet) Len() int {
	return len(s.words)
}

// Words returns the stopwords in alphabetical order
func (s StopwordSet) Words() []string {
	words := make([]string, 0, len(s.words))
	for word := range s.words {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// EnglishStopwords returns the bundled English stopword list
func EnglishStopwords() StopwordSet {
	set, err := ParseStopwords(strings.NewReader(englishStopwordsFile))
	if err != nil {
		return MinimalStopwords()
	}
	return set
}

// MinimalStopwords returns the built-in reduced stopword list
func MinimalStopwords() StopwordSet {
	return NewStopwordSet(minimalStopwords...)
}

// ParseStopwords reads one stopword per line. Blank lines and lines starting
// with '#' are ignored.
func ParseStopwords(r io.Reader) (StopwordSet, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return StopwordSet{}, fmt.Errorf("failed to read stopwords: %w", err)
	}
	if len(words) == 0 {
		return StopwordSet{}, fmt.Errorf("stopword list is empty")
	}
	return NewStopwordSet(words...), nil
}

// LoadStopwords reads a stopword file from disk
func LoadStopwords(path string) (StopwordSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return StopwordSet{}, fmt.Errorf("failed to open stopword file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	set, err := ParseStopwords(file)
	if err != nil {
		return StopwordSet{}, fmt.Errorf("invalid stopword file %s: %w", path, err)
	}
	return set, nil
}
