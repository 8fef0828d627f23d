package analysis

import (
	"sort"

	"resumelens/internal/types"
)

// DefaultTopN is the number of words kept in the frequency table
const DefaultTopN = 20

// minTokenLength is the shortest token kept for counting and matching
const minTokenLength = 3

// countableTokens keeps alphabetic tokens that are not stopwords and are
// longer than two characters.
func countableTokens(tokens []string, stopwords StopwordSet) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) < minTokenLength || !isAlpha(token) || stopwords.Contains(token) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// WordFrequency ranks the most frequent content words of text. Ties keep
// the order in which words first appeared. A non-positive topN selects
// DefaultTopN.
func WordFrequency(text string, res Resources, topN int) []types.WordCount {
	tokens := res.Tokenizer.Tokenize(Normalize(text))
	return rankWords(countableTokens(tokens, res.Stopwords), topN)
}

func rankWords(tokens []string, topN int) []types.WordCount {
	if topN <= 0 {
		topN = DefaultTopN
	}

	index := make(map[string]int, len(tokens))
	counts := make([]types.WordCount, 0)
	for _, token := range tokens {
		if i, ok := index[token]; ok {
			counts[i].Count++
			continue
		}
		index[token] = len(counts)
		counts = append(counts, types.WordCount{Word: token, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > topN {
		counts = counts[:topN]
	}
	return counts
}
