package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/search"
	"meal-analysis-api/internal/pkg/common"
)

// Config tunes the decision procedure.
type Config struct {
	// MinScore is the minimum backend score a candidate needs to qualify
	// when its fuzzy tier did not already accept it.
	MinScore float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{MinScore: 50}
}

// Selection records the reference entry chosen for one dish or
// ingredient.
type Selection struct {
	EntryID     int64           `json:"entry_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SourceTier  food.SourceTier `json:"source_tier"`
	Score       float64         `json:"score"`
	Tier        food.MatchTier  `json:"tier"`
}

// Decision is the terminal state for one dish: the calculation strategy,
// the selected reference IDs and a human-readable rationale for the
// session record.
type Decision struct {
	Strategy              food.CalculationStrategy `json:"strategy"`
	Dish                  *Selection               `json:"dish,omitempty"`
	Ingredients           []*Selection             `json:"ingredients,omitempty"`
	Rationale             string                   `json:"rationale"`
	UnresolvedIngredients []string                 `json:"unresolved_ingredients,omitempty"`
}

// Decider chooses, per dish, whether nutrients come from one whole-dish
// reference entry or from the sum of its ingredients.
type Decider struct {
	config  Config
	entries map[int64]*food.Entry
}

// NewDecider creates a Decider over the loaded corpus. The entry map is
// read-only and shared.
func NewDecider(cfg Config, entries []*food.Entry) *Decider {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultConfig().MinScore
	}
	byID := make(map[int64]*food.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Decider{config: cfg, entries: byID}
}

// Decide runs the decision procedure for one dish given its own ranked
// candidates and, independently, the ranked candidates per ingredient.
// The absence of any qualifying candidate is never an error: reference
// IDs stay unset and the pipeline proceeds.
func (d *Decider) Decide(dish *food.Dish, dishCandidates []search.Candidate, ingredientCandidates [][]search.Candidate) Decision {
	topDish := d.firstQualifying(dishCandidates)

	decision := d.classify(dish, topDish, ingredientCandidates)

	common.LogDebug("strategy decided",
		zap.String("dish", dish.Name),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("rationale", decision.Rationale),
	)
	return decision
}

func (d *Decider) classify(dish *food.Dish, topDish *search.Candidate, ingredientCandidates [][]search.Candidate) Decision {
	// A dish with at most one ingredient is an atomic food: a whole-dish
	// entry, when one qualifies, is strictly more accurate than
	// decomposition.
	if topDish != nil && len(dish.Ingredients) <= 1 {
		return Decision{
			Strategy:  food.StrategyDishLevel,
			Dish:      d.selection(topDish),
			Rationale: fmt.Sprintf("atomic food matched %q (%s)", topDish.Match.MatchedAlternative, topDish.Match.Tier),
		}
	}

	// A composite dish still calculates at dish level when a standardized
	// prepared-dish entry matches it exactly.
	if topDish != nil && exactTier(topDish.Match.Tier) {
		return Decision{
			Strategy:  food.StrategyDishLevel,
			Dish:      d.selection(topDish),
			Rationale: fmt.Sprintf("standardized dish matched %q (%s)", topDish.Match.MatchedAlternative, topDish.Match.Tier),
		}
	}

	// Composite without a representative whole-dish entry: decompose.
	if len(dish.Ingredients) > 0 {
		selections := make([]*Selection, len(dish.Ingredients))
		var unresolved []string
		resolved := 0
		for i := range dish.Ingredients {
			var cands []search.Candidate
			if i < len(ingredientCandidates) {
				cands = ingredientCandidates[i]
			}
			if top := d.firstQualifying(cands); top != nil {
				selections[i] = d.selection(top)
				resolved++
			} else {
				unresolved = append(unresolved, dish.Ingredients[i].Name)
			}
		}
		return Decision{
			Strategy:              food.StrategyIngredientLevel,
			Ingredients:           selections,
			Rationale:             fmt.Sprintf("composite dish without representative entry; %d/%d ingredients resolved", resolved, len(dish.Ingredients)),
			UnresolvedIngredients: unresolved,
		}
	}

	// No ingredients and no qualifying whole-dish entry: record the miss.
	rationale := "no qualifying reference entry for dish and no ingredients to decompose"
	if topDish != nil {
		rationale = fmt.Sprintf("weak dish match %q accepted for lack of ingredients", topDish.Match.MatchedAlternative)
		return Decision{
			Strategy:  food.StrategyDishLevel,
			Dish:      d.selection(topDish),
			Rationale: rationale,
		}
	}
	return Decision{
		Strategy:  food.StrategyDishLevel,
		Rationale: rationale,
	}
}

// firstQualifying returns the best candidate clearing the qualification
// bar, or nil. Candidates arrive ordered by score, source-tier authority
// and ID, so the first qualifying one is the selection.
func (d *Decider) firstQualifying(candidates []search.Candidate) *search.Candidate {
	for i := range candidates {
		c := &candidates[i]
		if c.Match.Tier.Matched() || c.Score >= d.config.MinScore {
			return c
		}
	}
	return nil
}

func (d *Decider) selection(c *search.Candidate) *Selection {
	name := c.Match.MatchedAlternative
	if name == "" {
		name = c.Entry.PrimaryName()
	}
	return &Selection{
		EntryID:     c.Entry.ID,
		Name:        name,
		Description: c.Entry.Description,
		SourceTier:  c.Entry.SourceTier,
		Score:       c.Score,
		Tier:        c.Match.Tier,
	}
}

// Apply writes a decision back into the dish: under dish_level the
// ingredients stay descriptive only; under ingredient_level the dish's
// reference stays unset.
func (d *Decider) Apply(dish *food.Dish, decision Decision) {
	dish.Strategy = decision.Strategy
	dish.StrategyRationale = decision.Rationale

	switch decision.Strategy {
	case food.StrategyDishLevel:
		if decision.Dish != nil {
			dish.MatchedEntry = d.entries[decision.Dish.EntryID]
			dish.MatchedName = decision.Dish.Name
		}
	case food.StrategyIngredientLevel:
		for i := range dish.Ingredients {
			if i >= len(decision.Ingredients) || decision.Ingredients[i] == nil {
				continue
			}
			sel := decision.Ingredients[i]
			dish.Ingredients[i].MatchedEntry = d.entries[sel.EntryID]
			dish.Ingredients[i].MatchedName = sel.Name
		}
	}
}

// exactTier reports whether the tier is precise enough to treat an entry
// as the standardized representation of a whole dish.
func exactTier(t food.MatchTier) bool {
	switch t {
	case food.TierExactNormalized, food.TierExactStemmedUnordered, food.TierHighSimilaritySubset:
		return true
	}
	return false
}
