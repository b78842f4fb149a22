package nutrition

import (
	"go.uber.org/zap"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/pkg/common"
)

// Result summarizes one aggregation pass. Partial resolution never fails
// the aggregation; unmatched contributions are omitted and counted.
type Result struct {
	ResolvedItems   int      `json:"resolved_items"`
	UnresolvedItems int      `json:"unresolved_items"`
	UnresolvedNames []string `json:"unresolved_names,omitempty"`
}

// Aggregator converts per-100g nutrient profiles plus estimated weights
// into absolute amounts and rolls them up ingredient -> dish -> meal.
type Aggregator struct{}

// NewAggregator creates an Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes every dish's totals and the meal total in place,
// finalizing the meal. It returns the resolution summary.
func (a *Aggregator) Aggregate(meal *food.Meal) Result {
	var result Result
	mealTotal := food.NutrientProfile{}

	for i := range meal.Dishes {
		dish := &meal.Dishes[i]
		dishResult := a.aggregateDish(dish)
		result.ResolvedItems += dishResult.ResolvedItems
		result.UnresolvedItems += dishResult.UnresolvedItems
		result.UnresolvedNames = append(result.UnresolvedNames, dishResult.UnresolvedNames...)

		if dish.TotalNutrients != nil {
			mealTotal = mealTotal.Add(*dish.TotalNutrients)
		}
	}

	meal.TotalNutrients = mealTotal

	if result.UnresolvedItems > 0 {
		common.LogWarn("aggregation completed with unresolved items",
			zap.Int("unresolved", result.UnresolvedItems),
			zap.Int("resolved", result.ResolvedItems),
			zap.Strings("names", result.UnresolvedNames),
		)
	}
	return result
}

// aggregateDish fills one dish's totals according to its calculation
// strategy.
func (a *Aggregator) aggregateDish(dish *food.Dish) Result {
	switch dish.Strategy {
	case food.StrategyDishLevel:
		return a.aggregateDishLevel(dish)
	case food.StrategyIngredientLevel:
		return a.aggregateIngredientLevel(dish)
	default:
		// No strategy decided, nothing to compute.
		return Result{UnresolvedItems: 1, UnresolvedNames: []string{dish.Name}}
	}
}

// aggregateDishLevel scales the matched entry's per-100g profile by the
// dish's total estimated weight. Ingredients stay descriptive metadata
// only and are not separately scaled.
func (a *Aggregator) aggregateDishLevel(dish *food.Dish) Result {
	if dish.MatchedEntry == nil {
		return Result{UnresolvedItems: 1, UnresolvedNames: []string{dish.Name}}
	}

	weight := food.TotalWeightG(dish.Ingredients)
	total := dish.MatchedEntry.Nutrients.Scale(weight / 100)
	dish.TotalNutrients = &total
	return Result{ResolvedItems: 1}
}

// aggregateIngredientLevel scales each resolved ingredient independently
// and sums them, skipping unresolved ones.
func (a *Aggregator) aggregateIngredientLevel(dish *food.Dish) Result {
	var result Result
	total := food.NutrientProfile{}

	for i := range dish.Ingredients {
		ing := &dish.Ingredients[i]
		if ing.MatchedEntry == nil {
			result.UnresolvedItems++
			result.UnresolvedNames = append(result.UnresolvedNames, ing.Name)
			continue
		}
		resolved := ing.MatchedEntry.Nutrients.Scale(ing.EstimatedWeightG / 100)
		ing.ResolvedNutrients = &resolved
		total = total.Add(resolved)
		result.ResolvedItems++
	}

	dish.TotalNutrients = &total
	return result
}
