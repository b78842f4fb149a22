package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/inference"
	"meal-analysis-api/internal/core/match"
	"meal-analysis-api/internal/core/query"
	"meal-analysis-api/internal/core/search"
	"meal-analysis-api/internal/core/strategy"
	"meal-analysis-api/internal/infrastructure/config"
	"meal-analysis-api/internal/pkg/common"
)

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			Workers:        2,
			LookupTimeout:  50 * time.Millisecond,
			SessionTimeout: 2 * time.Second,
		},
	}
}

func testCorpus() []*food.Entry {
	return []*food.Entry{
		{
			ID:          1,
			Names:       []string{"fried rice"},
			Nutrients:   food.NutrientProfile{Calories: 163, ProteinG: 4.2, FatG: 6.2, CarbohydrateG: 22.8},
			SourceTier:  food.SourceSurvey,
			Granularity: food.GranularityDish,
		},
		{
			ID:          2,
			Names:       []string{"rice"},
			Nutrients:   food.NutrientProfile{Calories: 130, CarbohydrateG: 28},
			SourceTier:  food.SourceFoundation,
			Granularity: food.GranularityIngredient,
		},
		{
			ID:          3,
			Names:       []string{"chicken breast"},
			Nutrients:   food.NutrientProfile{Calories: 165, ProteinG: 31, FatG: 3.6},
			SourceTier:  food.SourceFoundation,
			Granularity: food.GranularityIngredient,
		},
		{
			ID:          4,
			Names:       []string{"egg"},
			Nutrients:   food.NutrientProfile{Calories: 143, ProteinG: 12.6, FatG: 9.5},
			SourceTier:  food.SourceFoundation,
			Granularity: food.GranularityIngredient,
		},
	}
}

// slowBackend delays queries containing slowTerm until their context
// expires; everything else passes through.
type slowBackend struct {
	inner    search.Backend
	slowTerm string
}

func (b *slowBackend) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if b.slowTerm != "" && strings.Contains(req.Query, b.slowTerm) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.inner.Search(ctx, req)
}

// failingBackend simulates an unreachable search backend.
type failingBackend struct{}

func (b *failingBackend) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	return nil, common.ErrBackendUnavailable
}

func newTestOrchestrator(backend search.Backend) *Orchestrator {
	entries := testCorpus()
	normalizer := query.NewNormalizer(query.Options{})
	matcher := match.NewMatcher(normalizer, match.DefaultThresholds())
	resolver := match.NewAlternativeResolver(matcher)
	if backend == nil {
		backend = search.NewIndex(normalizer, entries)
	}
	ranker := search.NewRanker(backend, resolver, search.DefaultRankerConfig())
	decider := strategy.NewDecider(strategy.DefaultConfig(), entries)
	return NewOrchestrator(testConfig(), ranker, decider, nil)
}

func TestAnalyzeFullSession(t *testing.T) {
	o := newTestOrchestrator(nil)
	payload := &inference.Payload{
		Dishes: []inference.DishItem{
			{
				Name: "Fried Rice",
				Type: "main",
				Ingredients: []inference.IngredientItem{
					{Name: "rice", WeightG: 200},
					{Name: "egg", WeightG: 50},
				},
			},
		},
	}

	result, err := o.Analyze(context.Background(), payload)
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 1, result.DishCount)
	assert.Equal(t, 2, result.IngredientCount)
	assert.Equal(t, 1, result.MatchedItems)
	assert.Equal(t, 0, result.UnresolvedItems)
	assert.False(t, result.PartialResolution)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, food.StrategyDishLevel, result.Decisions[0].Decision.Strategy)

	dish := result.Meal.Dishes[0]
	require.NotNil(t, dish.TotalNutrients)
	// 250 g total at the whole-dish profile of 163 kcal/100 g.
	assert.InDelta(t, 163*2.5, dish.TotalNutrients.Calories, 1e-9)
	assert.InDelta(t, dish.TotalNutrients.Calories, result.Meal.TotalNutrients.Calories, 1e-9)

	stages := make([]string, 0, len(result.Timings))
	for _, tm := range result.Timings {
		stages = append(stages, tm.Stage)
	}
	assert.Equal(t, []string{"build", "retrieval", "strategy", "aggregation"}, stages)
}

func TestAnalyzeDecomposesUnknownDish(t *testing.T) {
	o := newTestOrchestrator(nil)
	payload := &inference.Payload{
		Dishes: []inference.DishItem{
			{
				Name: "homemade power bowl",
				Ingredients: []inference.IngredientItem{
					{Name: "rice", WeightG: 150},
					{Name: "chicken breast", WeightG: 100},
				},
			},
		},
	}

	result, err := o.Analyze(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, food.StrategyIngredientLevel, result.Decisions[0].Decision.Strategy)
	assert.Equal(t, 2, result.MatchedItems)

	dish := result.Meal.Dishes[0]
	require.NotNil(t, dish.TotalNutrients)
	// 150 g rice at 130 kcal/100 g plus 100 g chicken at 165 kcal/100 g.
	assert.InDelta(t, 195+165, dish.TotalNutrients.Calories, 1e-9)
}

// One lookup timing out must not sink the session: the remaining items
// resolve, the slow one degrades to unresolved with a warning.
func TestAnalyzeLookupTimeoutDegrades(t *testing.T) {
	entries := testCorpus()
	normalizer := query.NewNormalizer(query.Options{})
	inner := search.NewIndex(normalizer, entries)
	o := newTestOrchestrator(&slowBackend{inner: inner, slowTerm: "tofu"})

	payload := &inference.Payload{
		Dishes: []inference.DishItem{
			{
				Name: "homemade stir fry",
				Ingredients: []inference.IngredientItem{
					{Name: "rice", WeightG: 150},
					{Name: "chicken breast", WeightG: 100},
					{Name: "tofu", WeightG: 80},
				},
			},
		},
	}

	result, err := o.Analyze(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MatchedItems)
	assert.Equal(t, 1, result.UnresolvedItems)
	assert.Equal(t, []string{"tofu"}, result.UnresolvedNames)
	assert.True(t, result.PartialResolution)

	require.NotEmpty(t, result.Warnings)
	found := false
	for _, w := range result.Warnings {
		if w.Code == common.ErrCodeLookupTimeout && w.Item == "tofu" {
			found = true
		}
	}
	assert.True(t, found, "expected a lookup timeout warning for tofu, got %+v", result.Warnings)

	// Completed work is retained.
	dish := result.Meal.Dishes[0]
	require.NotNil(t, dish.TotalNutrients)
	assert.InDelta(t, 130*1.5+165*1.0, dish.TotalNutrients.Calories, 1e-9)
}

func TestAnalyzeBackendUnavailableIsFatal(t *testing.T) {
	o := newTestOrchestrator(&failingBackend{})
	payload := &inference.Payload{
		Dishes: []inference.DishItem{
			{Name: "fried rice"},
		},
	}

	_, err := o.Analyze(context.Background(), payload)
	require.Error(t, err)

	var ce *common.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, common.ErrCodeBackendUnavailable, ce.Code)
}

func TestAnalyzeRejectsEmptyPayload(t *testing.T) {
	o := newTestOrchestrator(nil)

	_, err := o.Analyze(context.Background(), &inference.Payload{})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}
