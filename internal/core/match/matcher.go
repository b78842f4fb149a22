package match

import (
	"strings"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/query"
)

// Thresholds tunes the similarity gates of the matcher. Both values are
// empirically tuned and externally configurable.
type Thresholds struct {
	// WordOrder gates the subset/word-order tiers.
	WordOrder float64
	// Similarity is the stricter gate for the plain high-similarity tier.
	Similarity float64
}

// DefaultThresholds returns the tuned default gates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WordOrder:  0.7,
		Similarity: 0.85,
	}
}

// Matcher decides whether a query string and a candidate name denote the
// same food despite surface differences (case, plural, inflection,
// possessive, punctuation, word order). Construct once and inject.
type Matcher struct {
	normalizer *query.Normalizer
	thresholds Thresholds
}

// NewMatcher creates a Matcher sharing the given normalizer's
// tokenization rules.
func NewMatcher(normalizer *query.Normalizer, thresholds Thresholds) *Matcher {
	if thresholds.WordOrder <= 0 {
		thresholds.WordOrder = DefaultThresholds().WordOrder
	}
	if thresholds.Similarity <= 0 {
		thresholds.Similarity = DefaultThresholds().Similarity
	}
	return &Matcher{
		normalizer: normalizer,
		thresholds: thresholds,
	}
}

// Match classifies the query/candidate pair into a tier, first match wins:
//
//  1. exact_normalized: basic normalization makes the strings identical.
//  2. exact_stemmed_unordered: equal stem sets, order ignored.
//  3. high_similarity_subset / high_similarity: stem-set Jaccard above the
//     configured gates.
//  4. no_match: below every gate; the similarity is still reported for
//     ranking and diagnostics.
//
// Empty input never panics; it yields a no_match result with the input
// error flag set.
func (m *Matcher) Match(queryText, candidate string) food.MatchResult {
	if strings.TrimSpace(queryText) == "" || strings.TrimSpace(candidate) == "" {
		return food.MatchResult{
			Tier:       food.TierNoMatch,
			Score:      0,
			InputError: true,
		}
	}

	// Tier 1: byte-identical after basic normalization.
	if basicNormalize(m.normalizer, queryText) == basicNormalize(m.normalizer, candidate) {
		return food.MatchResult{
			Tier:               food.TierExactNormalized,
			Score:              1.0,
			MatchedAlternative: candidate,
		}
	}

	queryStems := stemSet(m.normalizer, queryText)
	candStems := stemSet(m.normalizer, candidate)

	// Tier 2: equal stem sets regardless of word order.
	if len(queryStems) > 0 && setsEqual(queryStems, candStems) {
		return food.MatchResult{
			Tier:               food.TierExactStemmedUnordered,
			Score:              1.0,
			MatchedAlternative: candidate,
		}
	}

	// Tier 3: token-set Jaccard similarity.
	similarity := jaccard(queryStems, candStems)
	if similarity >= m.thresholds.WordOrder {
		if isSubset(queryStems, candStems) || isSubset(candStems, queryStems) {
			return food.MatchResult{
				Tier:               food.TierHighSimilaritySubset,
				Score:              similarity,
				MatchedAlternative: candidate,
			}
		}
		if similarity >= m.thresholds.Similarity {
			return food.MatchResult{
				Tier:               food.TierHighSimilarity,
				Score:              similarity,
				MatchedAlternative: candidate,
			}
		}
	}

	return food.MatchResult{
		Tier:  food.TierNoMatch,
		Score: similarity,
	}
}

// basicNormalize lower-cases, strips possessives and collapses punctuation
// and whitespace, without stopword removal or stemming.
func basicNormalize(n *query.Normalizer, s string) string {
	return strings.Join(n.Tokenize(s), " ")
}

// stemSet tokenizes, removes stopwords and reduces each token to its stem.
func stemSet(n *query.Normalizer, s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range n.Normalize(s).Tokens {
		set[tok] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// isSubset reports whether every element of a is in b.
func isSubset(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(a) > len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// jaccard computes intersection over union of two stem sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
