package search

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/match"
	"meal-analysis-api/internal/pkg/common"
)

// RankerConfig tunes candidate retrieval. Every weight is externally
// configurable; the defaults are the tuned production values.
type RankerConfig struct {
	Limit             int
	MaxScore          float64
	ExactPhraseWeight float64
	ProximityWeight   float64
	TokenWeight       float64
	PrefixWeight      float64
	Highlight         bool
}

// DefaultRankerConfig returns the tuned defaults.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		Limit:             10,
		MaxScore:          1000,
		ExactPhraseWeight: 100,
		ProximityWeight:   50,
		TokenWeight:       40,
		PrefixWeight:      10,
		Highlight:         true,
	}
}

// Candidate is one retrieved entry with its backend score and the fuzzy
// tier classification of its best alternative name.
type Candidate struct {
	Entry      *food.Entry      `json:"entry"`
	Score      float64          `json:"score"`
	Match      food.MatchResult `json:"match"`
	Highlights []string         `json:"highlights,omitempty"`
}

// Ranker retrieves and ranks candidate entries for a query term. It owns
// the translation from configured weights into the backend query document
// and layers tier classification on top of the returned hits.
type Ranker struct {
	backend  Backend
	resolver *match.AlternativeResolver
	config   RankerConfig
}

// NewRanker creates a Ranker over the given backend.
func NewRanker(backend Backend, resolver *match.AlternativeResolver, cfg RankerConfig) *Ranker {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultRankerConfig().Limit
	}
	if cfg.MaxScore <= 0 {
		cfg.MaxScore = DefaultRankerConfig().MaxScore
	}
	return &Ranker{
		backend:  backend,
		resolver: resolver,
		config:   cfg,
	}
}

// Rank issues the weighted multi-signal query for term and returns
// candidates ordered best first. Ordering: backend score descending, then
// source-tier authority, then entry ID for determinism.
func (r *Ranker) Rank(ctx context.Context, term string, granularity food.Granularity) ([]Candidate, error) {
	if strings.TrimSpace(term) == "" {
		return nil, common.NewValidationError("empty search term")
	}

	req := &Request{
		Query:       term,
		Granularity: granularity,
		Limit:       r.config.Limit,
		Highlight:   r.config.Highlight,
		MaxScore:    r.config.MaxScore,
		Bonuses: []BonusRule{
			{Kind: BonusExactPhrase, Weight: r.config.ExactPhraseWeight},
			{Kind: BonusProximity, Weight: r.config.ProximityWeight},
			{Kind: BonusToken, Weight: r.config.TokenWeight},
			{Kind: BonusPrefix, Weight: r.config.PrefixWeight},
		},
	}

	resp, err := r.backend.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		candidates = append(candidates, Candidate{
			Entry:      hit.Entry,
			Score:      hit.Score,
			Match:      r.resolver.Resolve(term, hit.Entry),
			Highlights: hit.Highlights,
		})
	}

	// The backend returns hits highest-score first already; re-sort to
	// apply the source-tier tie-break the backend knows nothing about.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if ri, rj := candidates[i].Entry.SourceTier.Rank(), candidates[j].Entry.SourceTier.Rank(); ri != rj {
			return ri < rj
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})

	common.LogDebug("candidates ranked",
		zap.String("term", term),
		zap.String("granularity", string(granularity)),
		zap.Int("count", len(candidates)),
	)
	return candidates, nil
}
