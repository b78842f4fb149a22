package match

import (
	"meal-analysis-api/internal/core/food"
)

// AlternativeResolver scores entries whose canonical name is a set of
// synonyms ("chickpeas" / "garbanzo beans"). Single-name entries are
// one-element lists, so the resolver never special-cases between string
// and list shapes.
type AlternativeResolver struct {
	matcher *Matcher
}

// NewAlternativeResolver creates a resolver on top of the given matcher.
func NewAlternativeResolver(matcher *Matcher) *AlternativeResolver {
	return &AlternativeResolver{matcher: matcher}
}

// Resolve scores every alternative name of the entry independently against
// the query and reports the maximum, recording which alternative won for
// explainability.
func (r *AlternativeResolver) Resolve(queryText string, entry *food.Entry) food.MatchResult {
	best := food.MatchResult{
		EntryID: entry.ID,
		Tier:    food.TierNoMatch,
	}
	if len(entry.Names) == 0 {
		best.InputError = true
		return best
	}

	for _, name := range entry.Names {
		result := r.matcher.Match(queryText, name)
		if better(result, best) {
			best = result
			best.EntryID = entry.ID
			best.MatchedAlternative = name
		}
	}
	return best
}

// better orders results by tier acceptance first, then score.
func better(a, b food.MatchResult) bool {
	if a.Tier.Matched() != b.Tier.Matched() {
		return a.Tier.Matched()
	}
	return a.Score > b.Score
}
