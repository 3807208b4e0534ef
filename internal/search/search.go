// Package search ranks items against a free-text pattern over weighted keys.
//
// Each key contributes a similarity in [0,1]: a case-insensitive substring
// hit scores 1, an in-order subsequence (sahilm/fuzzy) scores between 0.5 and
// 0.9 depending on how compact the match is, and anything else falls back to
// word-level Levenshtein similarity. An item's score is 1 minus its best
// weighted similarity, so 0 is a perfect match. Items scoring above the
// threshold are dropped.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// DefaultThreshold accepts loose matches in favour of recall.
const DefaultThreshold = 0.6

// Key reads one searchable field of T.
type Key[T any] struct {
	Name   string
	Weight float64
	Get    func(T) string
}

// Result is a matched item and its score (lower is better).
type Result[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

// Searcher holds a fixed item set with its lowercased key values.
type Searcher[T any] struct {
	items     []T
	keys      []Key[T]
	threshold float64
	values    []source // one per key
}

type source []string

func (s source) String(i int) string { return s[i] }
func (s source) Len() int            { return len(s) }

// New builds a Searcher. A threshold outside (0,1] falls back to
// DefaultThreshold.
func New[T any](items []T, threshold float64, keys ...Key[T]) *Searcher[T] {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	s := &Searcher[T]{items: items, keys: keys, threshold: threshold}
	for _, k := range keys {
		vals := make(source, len(items))
		for i, it := range items {
			vals[i] = strings.ToLower(k.Get(it))
		}
		s.values = append(s.values, vals)
	}
	return s
}

// Search returns the items matching pattern, best first. Ties keep item
// order. An empty pattern matches nothing.
func (s *Searcher[T]) Search(pattern string) []Result[T] {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" || len(s.items) == 0 {
		return nil
	}
	words := strings.Fields(pattern)
	best := make([]float64, len(s.items))
	for ki, k := range s.keys {
		vals := s.values[ki]
		subseq := make(map[int]float64)
		for _, m := range fuzzy.FindFrom(pattern, vals) {
			subseq[m.Index] = compactness(pattern, m.MatchedIndexes)
		}
		for i, v := range vals {
			var sim float64
			switch {
			case strings.Contains(v, pattern):
				sim = 1
			case subseq[i] > 0:
				sim = subseq[i]
			default:
				sim = wordSimilarity(words, strings.Fields(v))
			}
			best[i] = max(best[i], sim*k.Weight)
		}
	}

	var out []Result[T]
	for i, b := range best {
		if score := 1 - b; score <= s.threshold {
			out = append(out, Result[T]{Item: s.items[i], Score: score})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out
}

// compactness maps a subsequence match to [0.5, 0.9]: all matched characters
// adjacent scores 0.9.
func compactness(pattern string, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	span := idx[len(idx)-1] - idx[0] + 1
	ratio := float64(utf8.RuneCountInString(pattern)) / float64(max(span, 1))
	return 0.5 + 0.4*min(ratio, 1)
}

// wordSimilarity averages, over pattern words, the best normalised
// Levenshtein similarity against any text word.
func wordSimilarity(pattern, text []string) float64 {
	if len(pattern) == 0 || len(text) == 0 {
		return 0
	}
	var total float64
	for _, pw := range pattern {
		pl := utf8.RuneCountInString(pw)
		var best float64
		for _, tw := range text {
			longest := max(pl, utf8.RuneCountInString(tw))
			sim := 1 - float64(lfuzzy.LevenshteinDistance(pw, tw))/float64(longest)
			if sim > best {
				best = sim
				if best == 1 {
					break
				}
			}
		}
		total += best
	}
	return total / float64(len(pattern))
}
