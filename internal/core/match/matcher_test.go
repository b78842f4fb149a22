package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/query"
)

func newTestMatcher() *Matcher {
	return NewMatcher(query.NewNormalizer(query.Options{}), DefaultThresholds())
}

func TestMatchExactNormalized(t *testing.T) {
	m := newTestMatcher()

	got := m.Match("Grilled Chicken", "grilled chicken!")
	assert.Equal(t, food.TierExactNormalized, got.Tier)
	assert.Equal(t, 1.0, got.Score)
}

func TestMatchPluralCollapsesToStemmedTier(t *testing.T) {
	m := newTestMatcher()

	got := m.Match("Tomatoes", "tomato")
	assert.Equal(t, food.TierExactStemmedUnordered, got.Tier)
	assert.Equal(t, 1.0, got.Score)
}

func TestMatchWordOrderIgnored(t *testing.T) {
	m := newTestMatcher()

	got := m.Match("chicken grilled", "Grilled Chicken")
	assert.Equal(t, food.TierExactStemmedUnordered, got.Tier)
	assert.Equal(t, 1.0, got.Score)
}

func TestMatchSubsetTier(t *testing.T) {
	m := newTestMatcher()

	got := m.Match("grilled chicken breast", "grilled chicken breast skinless")
	assert.Equal(t, food.TierHighSimilaritySubset, got.Tier)
	assert.InDelta(t, 0.75, got.Score, 1e-9)
}

// Overlap between the two gates without a subset relation stays below
// the strict similarity gate and must not match.
func TestMatchMidOverlapNonSubsetRejected(t *testing.T) {
	m := newTestMatcher()

	got := m.Match(
		"black bean corn salsa dip spicy",
		"black bean corn salsa dip mild",
	)
	assert.Equal(t, food.TierNoMatch, got.Tier)
	assert.InDelta(t, 5.0/7.0, got.Score, 1e-9)
}

func TestMatchLooserSimilarityGateAccepts(t *testing.T) {
	m := NewMatcher(query.NewNormalizer(query.Options{}), Thresholds{
		WordOrder:  0.7,
		Similarity: 0.7,
	})

	got := m.Match(
		"black bean corn salsa dip spicy",
		"black bean corn salsa dip mild",
	)
	assert.Equal(t, food.TierHighSimilarity, got.Tier)
}

// Sharing a stem prefix is not sharing a meaning.
func TestMatchUnrelatedTermsRejected(t *testing.T) {
	m := newTestMatcher()

	got := m.Match("cookie", "cooking oil")
	assert.Equal(t, food.TierNoMatch, got.Tier)
	assert.Equal(t, 0.0, got.Score)
}

func TestMatchEmptyInput(t *testing.T) {
	m := newTestMatcher()

	for _, pair := range [][2]string{
		{"", "chicken"},
		{"chicken", ""},
		{"   ", "   "},
	} {
		got := m.Match(pair[0], pair[1])
		assert.Equal(t, food.TierNoMatch, got.Tier)
		assert.True(t, got.InputError)
		assert.Equal(t, 0.0, got.Score)
	}
}
