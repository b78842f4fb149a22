package pipeline

import (
	"sync"
	"time"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/strategy"
)

// Warning is one non-fatal event collected during a session.
type Warning struct {
	Code    string `json:"code"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}

// warningCollector is the only mutable state shared across concurrent
// lookups, guarded by a mutex.
type warningCollector struct {
	mu       sync.Mutex
	warnings []Warning
}

func (c *warningCollector) add(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

func (c *warningCollector) list() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
}

// DishDecision pairs a dish name with its strategy decision for the
// session record.
type DishDecision struct {
	Dish     string            `json:"dish"`
	Decision strategy.Decision `json:"decision"`
}

// SessionResult is the session record handed to persistence and reporting
// tooling: per-stage timings, counts, strategy decisions with rationale,
// unresolved items and the final meal.
type SessionResult struct {
	SessionID         string         `json:"session_id"`
	Meal              *food.Meal     `json:"meal"`
	Decisions         []DishDecision `json:"decisions"`
	Timings           []StageTiming  `json:"timings"`
	DishCount         int            `json:"dish_count"`
	IngredientCount   int            `json:"ingredient_count"`
	MatchedItems      int            `json:"matched_items"`
	UnresolvedItems   int            `json:"unresolved_items"`
	UnresolvedNames   []string       `json:"unresolved_names,omitempty"`
	PartialResolution bool           `json:"partial_resolution"`
	Warnings          []Warning      `json:"warnings,omitempty"`
}

// stageClock measures stage durations.
type stageClock struct {
	timings []StageTiming
}

func (c *stageClock) measure(stage string, fn func()) {
	start := time.Now()
	fn()
	c.timings = append(c.timings, StageTiming{
		Stage:      stage,
		DurationMS: time.Since(start).Milliseconds(),
	})
}
