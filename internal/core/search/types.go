package search

import (
	"context"

	"meal-analysis-api/internal/core/food"
)

// BonusKind names one deterministic bonus function layered on top of base
// lexical relevance. Bonuses are gated on the original, non-normalized
// query so literal matches always outrank loose lexical overlap.
type BonusKind string

const (
	// BonusExactPhrase fires when the whole query matches a candidate name
	// exactly as a phrase.
	BonusExactPhrase BonusKind = "exact_phrase"
	// BonusProximity fires when the query words appear in order with at
	// most one word between them.
	BonusProximity BonusKind = "proximity"
	// BonusToken fires once per significant query token (length > 2) found
	// literally in the candidate name.
	BonusToken BonusKind = "token"
	// BonusPrefix fires when the query is a literal prefix of the
	// candidate name.
	BonusPrefix BonusKind = "prefix"
)

// BonusRule pairs a bonus function with its weight.
type BonusRule struct {
	Kind   BonusKind `json:"kind"`
	Weight float64   `json:"weight"`
}

// DefaultBonuses returns the tuned default bonus ladder.
func DefaultBonuses() []BonusRule {
	return []BonusRule{
		{Kind: BonusExactPhrase, Weight: 100},
		{Kind: BonusProximity, Weight: 50},
		{Kind: BonusToken, Weight: 40},
		{Kind: BonusPrefix, Weight: 10},
	}
}

// Request is the structured query document every backend accepts: the base
// multi-field lexical clause, a category filter, the bonus-function list,
// a result-size bound and a highlight flag.
type Request struct {
	// Query is the raw query text; the backend normalizes it for the
	// analyzed field and uses it verbatim for bonus gating.
	Query string `json:"query"`
	// Granularity restricts candidates to entries tagged with the
	// category; empty means no filter.
	Granularity food.Granularity `json:"granularity,omitempty"`
	Limit       int              `json:"limit"`
	Highlight   bool             `json:"highlight"`
	Bonuses     []BonusRule      `json:"bonuses,omitempty"`
	// MaxScore caps the final score so no pathological bonus combination
	// dominates ordering unpredictably.
	MaxScore float64 `json:"max_score,omitempty"`
}

// Hit is one ranked result.
type Hit struct {
	Entry       *food.Entry `json:"entry"`
	Score       float64     `json:"score"`
	MatchedName string      `json:"matched_name"`
	Highlights  []string    `json:"highlights,omitempty"`
}

// Response is the ranked hit list for one Request.
type Response struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// Backend is the query contract. Any implementation satisfying it is
// acceptable: a true inverted-index engine, an in-memory scanner or a
// SQL fallback.
type Backend interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}
