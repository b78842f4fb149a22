package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meal-analysis-api/internal/core/cache"
	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/inference"
	"meal-analysis-api/internal/core/nutrition"
	"meal-analysis-api/internal/core/search"
	"meal-analysis-api/internal/core/strategy"
	"meal-analysis-api/internal/infrastructure/config"
	"meal-analysis-api/internal/pkg/common"
)

// Orchestrator drives one analysis session through its stages in order:
// meal construction, candidate retrieval, strategy decision, nutrient
// aggregation. Stages run sequentially; retrieval and decision fan out
// over a bounded worker pool internally.
type Orchestrator struct {
	config     *config.Config
	ranker     *search.Ranker
	decider    *strategy.Decider
	aggregator *nutrition.Aggregator
	cache      *cache.Manager
}

// NewOrchestrator wires the pipeline. cacheManager may be nil when the
// candidate cache is disabled.
func NewOrchestrator(cfg *config.Config, ranker *search.Ranker, decider *strategy.Decider, cacheManager *cache.Manager) *Orchestrator {
	return &Orchestrator{
		config:     cfg,
		ranker:     ranker,
		decider:    decider,
		aggregator: nutrition.NewAggregator(),
		cache:      cacheManager,
	}
}

// lookupTask is one candidate retrieval, bound to the slot its result is
// written into. ingIdx is -1 for a whole-dish lookup.
type lookupTask struct {
	term        string
	granularity food.Granularity
	dishIdx     int
	ingIdx      int
}

// Analyze runs the full pipeline over a validated payload and returns
// the session record. Timed-out or failed lookups degrade to unresolved
// items with a warning; only an unreachable search backend or an empty
// payload aborts the session.
func (o *Orchestrator) Analyze(ctx context.Context, payload *inference.Payload) (*SessionResult, error) {
	if err := inference.Validate(payload); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, o.config.Pipeline.SessionTimeout)
	defer cancel()

	warnings := &warningCollector{}
	clock := &stageClock{}

	var (
		meal     *food.Meal
		tasks    []lookupTask
		results  [][]search.Candidate
		fatal    error
		fatalMu  sync.Mutex
		decision = make([]strategy.Decision, len(payload.Dishes))
	)

	clock.measure("build", func() {
		meal, tasks = o.buildMeal(payload)
	})

	clock.measure("retrieval", func() {
		results = make([][]search.Candidate, len(tasks))
		o.runPool(ctx, len(tasks), func(taskCtx context.Context, i int) {
			cands, err := o.lookup(taskCtx, tasks[i])
			if err != nil {
				var ce *common.CustomError
				if errors.As(err, &ce) && ce.Code == common.ErrCodeBackendUnavailable {
					fatalMu.Lock()
					if fatal == nil {
						fatal = err
					}
					fatalMu.Unlock()
					cancel()
					return
				}
				code := common.ErrCodeLookupMiss
				if errors.Is(err, context.DeadlineExceeded) {
					code = common.ErrCodeLookupTimeout
				}
				warnings.add(Warning{Code: code, Item: tasks[i].term, Message: err.Error()})
				return
			}
			results[i] = cands
		})
	})
	if fatal != nil {
		return nil, fatal
	}

	dishCands, ingCands := o.collate(payload, tasks, results)

	clock.measure("strategy", func() {
		o.runPool(ctx, len(meal.Dishes), func(_ context.Context, i int) {
			decision[i] = o.decider.Decide(&meal.Dishes[i], dishCands[i], ingCands[i])
		})
		for i := range meal.Dishes {
			o.decider.Apply(&meal.Dishes[i], decision[i])
		}
	})

	var agg nutrition.Result
	clock.measure("aggregation", func() {
		agg = o.aggregator.Aggregate(meal)
	})

	result := &SessionResult{
		SessionID:         sessionID,
		Meal:              meal,
		Timings:           clock.timings,
		DishCount:         len(meal.Dishes),
		MatchedItems:      agg.ResolvedItems,
		UnresolvedItems:   agg.UnresolvedItems,
		UnresolvedNames:   agg.UnresolvedNames,
		PartialResolution: agg.UnresolvedItems > 0,
		Warnings:          warnings.list(),
	}
	for i := range meal.Dishes {
		result.IngredientCount += len(meal.Dishes[i].Ingredients)
		result.Decisions = append(result.Decisions, DishDecision{
			Dish:     meal.Dishes[i].Name,
			Decision: decision[i],
		})
	}

	common.LogInfo("analysis session completed",
		zap.String("session_id", sessionID),
		zap.Int("dishes", result.DishCount),
		zap.Int("ingredients", result.IngredientCount),
		zap.Int("matched", result.MatchedItems),
		zap.Int("unresolved", result.UnresolvedItems),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// buildMeal converts the inference payload into the meal skeleton and
// plans one lookup per dish plus one per ingredient, preserving input
// order so concurrent results land in stable slots.
func (o *Orchestrator) buildMeal(payload *inference.Payload) (*food.Meal, []lookupTask) {
	meal := &food.Meal{Dishes: make([]food.Dish, len(payload.Dishes))}
	var tasks []lookupTask

	for di, item := range payload.Dishes {
		dish := &meal.Dishes[di]
		dish.Name = item.Name
		dish.Type = item.Type
		dish.Ingredients = make([]food.Ingredient, len(item.Ingredients))
		for ii, ing := range item.Ingredients {
			dish.Ingredients[ii] = food.Ingredient{
				Name:             ing.Name,
				EstimatedWeightG: ing.WeightG,
			}
		}

		tasks = append(tasks, lookupTask{
			term:        dishTerm(item),
			granularity: food.GranularityDish,
			dishIdx:     di,
			ingIdx:      -1,
		})
		for ii, ing := range item.Ingredients {
			tasks = append(tasks, lookupTask{
				term:        ingredientTerm(item, ing.Name),
				granularity: food.GranularityIngredient,
				dishIdx:     di,
				ingIdx:      ii,
			})
		}
	}
	return meal, tasks
}

// dishTerm picks the model's preferred whole-dish search term, falling
// back to the dish name.
func dishTerm(item inference.DishItem) string {
	for _, qc := range item.QueryCandidates {
		g := food.Granularity(qc.Granularity)
		if g == food.GranularityDish || g == food.GranularityBrandedProduct {
			return qc.Term
		}
	}
	return item.Name
}

// ingredientTerm picks the model's search term for one ingredient via its
// source_term link, falling back to the ingredient name.
func ingredientTerm(item inference.DishItem, name string) string {
	for _, qc := range item.QueryCandidates {
		if food.Granularity(qc.Granularity) != food.GranularityIngredient {
			continue
		}
		if strings.EqualFold(qc.SourceTerm, name) {
			return qc.Term
		}
	}
	return name
}

// lookup retrieves ranked candidates for one term, consulting the cache
// first. Each lookup carries its own timeout inside the session deadline.
func (o *Orchestrator) lookup(ctx context.Context, task lookupTask) ([]search.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Pipeline.LookupTimeout)
	defer cancel()

	if cached, err := o.cache.Get(ctx, task.term, string(task.granularity)); err == nil && cached != "" {
		var cands []search.Candidate
		if err := common.ParseJSON(cached, &cands); err == nil {
			common.LogCacheHit("candidates", task.term)
			return cands, nil
		}
	}

	cands, err := o.ranker.Rank(ctx, task.term, task.granularity)
	if err != nil {
		return nil, err
	}

	if data, err := common.ToJSON(cands); err == nil {
		if err := o.cache.Set(ctx, task.term, string(task.granularity), data); err != nil {
			common.LogDebug("candidate cache store failed",
				zap.String("term", task.term), zap.Error(err))
		}
	}
	return cands, nil
}

// collate regroups the flat result slots by dish and ingredient for the
// strategy stage.
func (o *Orchestrator) collate(payload *inference.Payload, tasks []lookupTask, results [][]search.Candidate) ([][]search.Candidate, [][][]search.Candidate) {
	dishCands := make([][]search.Candidate, len(payload.Dishes))
	ingCands := make([][][]search.Candidate, len(payload.Dishes))
	for di, item := range payload.Dishes {
		ingCands[di] = make([][]search.Candidate, len(item.Ingredients))
	}
	for i, task := range tasks {
		if task.ingIdx < 0 {
			dishCands[task.dishIdx] = results[i]
		} else {
			ingCands[task.dishIdx][task.ingIdx] = results[i]
		}
	}
	return dishCands, ingCands
}

// runPool executes fn(ctx, i) for i in [0, n) over a bounded worker
// pool. Dispatch stops once the session context is done; unstarted tasks
// simply leave their result slots empty.
func (o *Orchestrator) runPool(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	workers := o.config.Pipeline.Workers
	if workers > n {
		workers = n
	}
	if workers <= 0 {
		workers = 1
	}

	taskCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				fn(ctx, i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case taskCh <- i:
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return
		}
	}
	close(taskCh)
	wg.Wait()
}
