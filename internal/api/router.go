package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"meal-analysis-api/internal/api/handlers/health"
	mealHandler "meal-analysis-api/internal/api/handlers/meal"
	"meal-analysis-api/internal/api/middleware"
	"meal-analysis-api/internal/core/cache"
	"meal-analysis-api/internal/core/inference"
	"meal-analysis-api/internal/core/match"
	"meal-analysis-api/internal/core/pipeline"
	"meal-analysis-api/internal/core/query"
	"meal-analysis-api/internal/core/search"
	"meal-analysis-api/internal/core/strategy"
	"meal-analysis-api/internal/infrastructure/config"
	"meal-analysis-api/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	requestTimeout = 120 * time.Second
	// Request body limit (10MB), sized for base64 media payloads.
	maxBodySize = 10 << 20
)

// SetupRouter loads the reference corpus, wires the analysis pipeline
// and registers the HTTP surface.
func SetupRouter(cfg *config.Config, cacheManager *cache.Manager) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("pipeline_workers", cfg.Pipeline.Workers),
		zap.String("corpus_path", cfg.Search.CorpusPath),
		zap.Duration("timeout", requestTimeout),
	)

	// Load the reference corpus once; the index and decider share the
	// loaded entries for the process lifetime.
	store, err := search.NewStore(cfg.Search.CorpusPath)
	if err != nil {
		common.LogError("Failed to open corpus store", zap.Error(err))
		return nil, fmt.Errorf("failed to open corpus store: %w", err)
	}
	entries, err := store.LoadEntries()
	if err != nil {
		store.Close()
		common.LogError("Failed to load corpus entries", zap.Error(err))
		return nil, fmt.Errorf("failed to load corpus entries: %w", err)
	}
	if err := store.Close(); err != nil {
		common.LogWarn("Corpus store close failed", zap.Error(err))
	}

	normalizer := query.NewNormalizer(query.Options{})
	matcher := match.NewMatcher(normalizer, match.Thresholds{
		WordOrder:  cfg.Matching.WordOrderThreshold,
		Similarity: cfg.Matching.SimilarityThreshold,
	})
	resolver := match.NewAlternativeResolver(matcher)
	index := search.NewIndex(normalizer, entries)

	ranker := search.NewRanker(index, resolver, search.RankerConfig{
		Limit:             cfg.Search.MaxResults,
		MaxScore:          cfg.Search.MaxScore,
		ExactPhraseWeight: cfg.Search.ExactPhraseWeight,
		ProximityWeight:   cfg.Search.ProximityWeight,
		TokenWeight:       cfg.Search.TokenWeight,
		PrefixWeight:      cfg.Search.PrefixWeight,
		Highlight:         cfg.Search.Highlight,
	})
	decider := strategy.NewDecider(strategy.Config{MinScore: cfg.Matching.MinStrategyScore}, entries)
	orchestrator := pipeline.NewOrchestrator(cfg, ranker, decider, cacheManager)
	inferenceClient := inference.NewClient(cfg)

	common.LogInfo("Services initialized successfully",
		zap.Int("corpus_entries", len(entries)),
		zap.Int("indexed_names", index.Size()),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.String("environment", cfg.App.Env),
	)

	// Per-request timeout plus context injection for the probe handlers.
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("cache_manager", cacheManager)
		c.Set("corpus_size", len(entries))

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", requestTimeout),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": requestTimeout.String(),
				},
			})
			c.Abort()
		}
	})

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		mealGroup := api.Group("/meal")
		{
			// Media in, analyzed meal out.
			mealGroup.POST("/analyze", mealHandler.HandleMealAnalysis(inferenceClient, orchestrator))

			// Structured dish list in, skips recognition.
			mealGroup.POST("/analyze/items", mealHandler.HandleItemAnalysis(orchestrator))
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Int("corpus_entries", len(entries)),
		zap.Duration("timeout", requestTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
