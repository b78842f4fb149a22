package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/query"
)

func testCorpus() []*food.Entry {
	return []*food.Entry{
		{
			ID:          1,
			Names:       []string{"chicken breast"},
			Nutrients:   food.NutrientProfile{Calories: 165, ProteinG: 31, FatG: 3.6},
			SourceTier:  food.SourceFoundation,
			Granularity: food.GranularityIngredient,
		},
		{
			ID:          2,
			Names:       []string{"chicken breast grilled"},
			Nutrients:   food.NutrientProfile{Calories: 151, ProteinG: 30.5, FatG: 3.2},
			SourceTier:  food.SourceLegacy,
			Granularity: food.GranularityIngredient,
		},
		{
			ID:          3,
			Names:       []string{"fried rice"},
			Nutrients:   food.NutrientProfile{Calories: 163, ProteinG: 4.2, FatG: 6.2, CarbohydrateG: 22.8},
			SourceTier:  food.SourceSurvey,
			Granularity: food.GranularityDish,
		},
		{
			ID:          4,
			Names:       []string{"chickpeas", "garbanzo beans"},
			Nutrients:   food.NutrientProfile{Calories: 164, ProteinG: 8.9, CarbohydrateG: 27.4},
			SourceTier:  food.SourceLegacy,
			Granularity: food.GranularityIngredient,
		},
		{
			ID:          5,
			Names:       []string{"chicken soup"},
			Nutrients:   food.NutrientProfile{Calories: 36, ProteinG: 2.5, FatG: 1.2},
			SourceTier:  food.SourceBranded,
			Granularity: food.GranularityDish,
		},
	}
}

func testIndex() *Index {
	return NewIndex(query.NewNormalizer(query.Options{}), testCorpus())
}

func defaultBonuses() []BonusRule {
	return []BonusRule{
		{Kind: BonusExactPhrase, Weight: 100},
		{Kind: BonusProximity, Weight: 50},
		{Kind: BonusToken, Weight: 40},
		{Kind: BonusPrefix, Weight: 10},
	}
}

func TestSearchExactPhraseRanksFirst(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:   "chicken breast",
		Bonuses: defaultBonuses(),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(resp.Hits), 3)

	assert.Equal(t, int64(1), resp.Hits[0].Entry.ID, "exact phrase should outrank superset names")
	assert.Equal(t, int64(2), resp.Hits[1].Entry.ID)
	assert.Greater(t, resp.Hits[0].Score, resp.Hits[1].Score)
}

func TestSearchGranularityFilter(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:       "chicken",
		Granularity: food.GranularityIngredient,
		Bonuses:     defaultBonuses(),
	})
	require.NoError(t, err)

	for _, hit := range resp.Hits {
		assert.Equal(t, food.GranularityIngredient, hit.Entry.Granularity)
	}
}

func TestSearchTypoTolerance(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:   "chiken breast",
		Bonuses: defaultBonuses(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	// Equal scores fall back to entry ID so results stay deterministic.
	assert.Equal(t, int64(1), resp.Hits[0].Entry.ID)
}

func TestSearchScoreCap(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:    "chicken breast",
		Bonuses:  defaultBonuses(),
		MaxScore: 50,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	for _, hit := range resp.Hits {
		assert.LessOrEqual(t, hit.Score, 50.0)
	}
}

func TestSearchMatchesAlternativeName(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:   "garbanzo beans",
		Bonuses: defaultBonuses(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	assert.Equal(t, int64(4), resp.Hits[0].Entry.ID)
	assert.Equal(t, "garbanzo beans", resp.Hits[0].MatchedName)
}

func TestSearchLimit(t *testing.T) {
	idx := testIndex()

	resp, err := idx.Search(context.Background(), &Request{
		Query:   "chicken",
		Bonuses: defaultBonuses(),
		Limit:   1,
	})
	require.NoError(t, err)

	assert.Len(t, resp.Hits, 1)
	assert.GreaterOrEqual(t, resp.Total, 2)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := testIndex()

	_, err := idx.Search(context.Background(), &Request{Query: "   "})
	assert.Error(t, err)
}

func TestSearchCancelledContext(t *testing.T) {
	idx := testIndex()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, &Request{Query: "chicken"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithinOneEdit(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"chicken", "chiken", true},
		{"chicken", "chicken", true},
		{"brocoli", "broccoli", true},
		{"rice", "ride", true},
		{"rice", "pasta", false},
		{"chicken", "chickpea", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, withinOneEdit(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}
