package food

// NutrientProfile holds nutrient amounts. For a FoodEntry the values are
// per 100 grams of the referenced food; scaled copies carry absolute
// amounts for a concrete weight.
type NutrientProfile struct {
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
	CarbohydrateG float64 `json:"carbohydrate_g"`
	FiberG        float64 `json:"fiber_g,omitempty"`
	SugarG        float64 `json:"sugar_g,omitempty"`
	SodiumMg      float64 `json:"sodium_mg,omitempty"`
}

// Scale returns a copy of the profile scaled by factor. Entry profiles are
// per 100 g, so a 150 g portion uses factor 1.5.
func (p NutrientProfile) Scale(factor float64) NutrientProfile {
	return NutrientProfile{
		Calories:      p.Calories * factor,
		ProteinG:      p.ProteinG * factor,
		FatG:          p.FatG * factor,
		CarbohydrateG: p.CarbohydrateG * factor,
		FiberG:        p.FiberG * factor,
		SugarG:        p.SugarG * factor,
		SodiumMg:      p.SodiumMg * factor,
	}
}

// Add returns the element-wise sum of two profiles.
func (p NutrientProfile) Add(o NutrientProfile) NutrientProfile {
	return NutrientProfile{
		Calories:      p.Calories + o.Calories,
		ProteinG:      p.ProteinG + o.ProteinG,
		FatG:          p.FatG + o.FatG,
		CarbohydrateG: p.CarbohydrateG + o.CarbohydrateG,
		FiberG:        p.FiberG + o.FiberG,
		SugarG:        p.SugarG + o.SugarG,
		SodiumMg:      p.SodiumMg + o.SodiumMg,
	}
}

// SourceTier identifies the authority tier of the reference corpus a
// FoodEntry comes from. Lower rank means higher authority.
type SourceTier string

const (
	SourceFoundation SourceTier = "foundation"
	SourceLegacy     SourceTier = "sr_legacy"
	SourceSurvey     SourceTier = "survey"
	SourceBranded    SourceTier = "branded"
)

// sourceRank orders tiers by authority for tie-breaking.
var sourceRank = map[SourceTier]int{
	SourceFoundation: 0,
	SourceLegacy:     1,
	SourceSurvey:     2,
	SourceBranded:    3,
}

// Rank returns the authority rank of the tier. Unknown tiers sort last.
func (t SourceTier) Rank() int {
	if r, ok := sourceRank[t]; ok {
		return r
	}
	return len(sourceRank)
}

// Granularity is the intended specificity of a search term.
type Granularity string

const (
	GranularityDish           Granularity = "dish"
	GranularityIngredient     Granularity = "ingredient"
	GranularityBrandedProduct Granularity = "branded_product"
)

// Valid reports whether g is a known granularity level.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDish, GranularityIngredient, GranularityBrandedProduct:
		return true
	}
	return false
}

// Entry is one record of the read-only reference corpus. Names holds one
// or more alternative names for the same underlying food ("chickpeas" /
// "garbanzo beans"); it is never empty.
type Entry struct {
	ID          int64           `json:"id"`
	Names       []string        `json:"names"`
	Description string          `json:"description,omitempty"`
	Nutrients   NutrientProfile `json:"nutrients"`
	SourceTier  SourceTier      `json:"source_tier"`
	Granularity Granularity     `json:"granularity"`
}

// PrimaryName returns the first alternative, used for display.
func (e *Entry) PrimaryName() string {
	if len(e.Names) == 0 {
		return ""
	}
	return e.Names[0]
}

// MatchTier is a bucket in the fuzzy-matching decision ladder.
type MatchTier string

const (
	TierExactNormalized       MatchTier = "exact_normalized"
	TierExactStemmedUnordered MatchTier = "exact_stemmed_unordered"
	TierHighSimilaritySubset  MatchTier = "high_similarity_subset"
	TierHighSimilarity        MatchTier = "high_similarity"
	TierNoMatch               MatchTier = "no_match"
)

// Matched reports whether the tier represents an accepted match.
func (t MatchTier) Matched() bool {
	switch t {
	case TierExactNormalized, TierExactStemmedUnordered, TierHighSimilaritySubset, TierHighSimilarity:
		return true
	}
	return false
}

// MatchResult is the outcome of scoring one query against one entry.
type MatchResult struct {
	EntryID            int64     `json:"entry_id,omitempty"`
	Score              float64   `json:"score"`
	Tier               MatchTier `json:"tier"`
	MatchedAlternative string    `json:"matched_alternative,omitempty"`
	InputError         bool      `json:"input_error,omitempty"`
}

// CalculationStrategy is the per-dish decision of how nutrients are
// computed.
type CalculationStrategy string

const (
	StrategyDishLevel       CalculationStrategy = "dish_level"
	StrategyIngredientLevel CalculationStrategy = "ingredient_level"
)

// Ingredient is one constituent of a dish as estimated by the upstream
// inference service.
type Ingredient struct {
	Name              string           `json:"name"`
	EstimatedWeightG  float64          `json:"estimated_weight_g"`
	MatchedEntry      *Entry           `json:"matched_entry,omitempty"`
	MatchedName       string           `json:"matched_name,omitempty"`
	ResolvedNutrients *NutrientProfile `json:"resolved_nutrients,omitempty"`
}

// TotalWeightG sums the estimated weights of all ingredients.
func TotalWeightG(ingredients []Ingredient) float64 {
	var total float64
	for _, ing := range ingredients {
		total += ing.EstimatedWeightG
	}
	return total
}

// Dish is one dish of the meal under analysis.
type Dish struct {
	Name              string              `json:"name"`
	Type              string              `json:"type,omitempty"`
	Ingredients       []Ingredient        `json:"ingredients"`
	Strategy          CalculationStrategy `json:"calculation_strategy,omitempty"`
	StrategyRationale string              `json:"strategy_rationale,omitempty"`
	MatchedEntry      *Entry              `json:"matched_entry,omitempty"`
	MatchedName       string              `json:"matched_name,omitempty"`
	TotalNutrients    *NutrientProfile    `json:"total_nutrients,omitempty"`
}

// Meal is the top-level record for one analysis session. The pipeline owns
// it for the lifetime of the request and finalizes it once aggregation
// completes.
type Meal struct {
	Dishes         []Dish          `json:"dishes"`
	TotalNutrients NutrientProfile `json:"total_nutrients"`
}
