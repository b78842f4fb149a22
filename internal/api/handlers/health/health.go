package health

import (
	"net/http"
	"runtime"
	"time"

	"meal-analysis-api/internal/core/cache"
	"meal-analysis-api/internal/infrastructure/config"
	"meal-analysis-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Corpus    *CorpusStatus          `json:"corpus,omitempty"`
}

// CorpusStatus reports the loaded reference corpus and candidate cache.
type CorpusStatus struct {
	Entries int                    `json:"entries"`
	Cache   map[string]interface{} `json:"cache,omitempty"`
}

// HealthCheck reports process health, corpus size and cache statistics.
func HealthCheck(c *gin.Context) {
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	corpus := &CorpusStatus{}
	if size, exists := c.Get("corpus_size"); exists {
		if n, ok := size.(int); ok {
			corpus.Entries = n
		}
	}
	if mgr, exists := c.Get("cache_manager"); exists {
		if cm, ok := mgr.(*cache.Manager); ok && cm != nil {
			corpus.Cache = cm.GetStats()
		}
	}
	response.Corpus = corpus

	common.LogInfo("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck reports whether the service can take traffic. The
// corpus loads before the router starts, so reaching this handler means
// lookups are serviceable.
func ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck is the bare process liveness probe.
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
