package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Inference InferenceConfig `mapstructure:"inference"`
	Search    SearchConfig    `mapstructure:"search"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
}

// AppConfig is the application identity.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// InferenceConfig configures the upstream vision/speech service client.
type InferenceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig configures the reference corpus and candidate ranking.
// The bonus weights and score cap are empirically tuned constants kept
// external so product owners can adjust them without a rebuild.
type SearchConfig struct {
	CorpusPath        string  `mapstructure:"corpus_path"`
	MaxResults        int     `mapstructure:"max_results"`
	MaxScore          float64 `mapstructure:"max_score"`
	ExactPhraseWeight float64 `mapstructure:"exact_phrase_weight"`
	ProximityWeight   float64 `mapstructure:"proximity_weight"`
	TokenWeight       float64 `mapstructure:"token_weight"`
	PrefixWeight      float64 `mapstructure:"prefix_weight"`
	Highlight         bool    `mapstructure:"highlight"`
}

// MatchingConfig configures the fuzzy matcher and the strategy decision.
// The two similarity thresholds were used inconsistently in earlier
// revisions; both stay configurable pending product-owner review.
type MatchingConfig struct {
	WordOrderThreshold  float64 `mapstructure:"word_order_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MinStrategyScore    float64 `mapstructure:"min_strategy_score"`
}

// PipelineConfig configures the analysis pipeline's concurrency model.
type PipelineConfig struct {
	Workers        int           `mapstructure:"workers"`
	LookupTimeout  time.Duration `mapstructure:"lookup_timeout"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
}

// CacheConfig configures the candidate-list cache.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisEnabled    bool          `mapstructure:"redis_enabled"`
	RedisAddr       string        `mapstructure:"redis_addr"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig loads configuration from the environment and .env file.
func LoadConfig() (*Config, error) {
	// .env is optional outside development.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("inference.base_url", "INFERENCE_BASE_URL")
	viper.BindEnv("inference.api_key", "INFERENCE_API_KEY")
	viper.BindEnv("inference.model", "INFERENCE_MODEL")
	viper.BindEnv("search.corpus_path", "CORPUS_PATH")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis_enabled", "CACHE_REDIS_ENABLED")
	viper.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Logger is not initialized yet, plain stdout is fine here.
	fmt.Println("Loading configuration",
		"inference_api_key:", maskAPIKey(viper.GetString("inference.api_key")),
		"inference_model:", viper.GetString("inference.model"),
		"corpus_path:", viper.GetString("search.corpus_path"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey shows only the first and last four characters of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	// Application
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "meal-analysis-api")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Inference service
	viper.SetDefault("inference.base_url", "http://localhost:9090")
	viper.SetDefault("inference.model", "food-vision-v2")
	viper.SetDefault("inference.timeout", "60s")

	// Search / ranking
	viper.SetDefault("search.corpus_path", "data/corpus.db")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.max_score", 1000)
	viper.SetDefault("search.exact_phrase_weight", 100)
	viper.SetDefault("search.proximity_weight", 50)
	viper.SetDefault("search.token_weight", 40)
	viper.SetDefault("search.prefix_weight", 10)
	viper.SetDefault("search.highlight", true)

	// Matching thresholds
	viper.SetDefault("matching.word_order_threshold", 0.7)
	viper.SetDefault("matching.similarity_threshold", 0.85)
	viper.SetDefault("matching.min_strategy_score", 50)

	// Pipeline
	viper.SetDefault("pipeline.workers", 5)
	viper.SetDefault("pipeline.lookup_timeout", "5s")
	viper.SetDefault("pipeline.session_timeout", "90s")

	// Cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")
	viper.SetDefault("cache.redis_enabled", false)
	viper.SetDefault("cache.redis_addr", "localhost:6379")

	// Rate limiting
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Search.CorpusPath == "" {
		return fmt.Errorf("corpus path is required")
	}
	if config.Search.MaxResults <= 0 {
		return fmt.Errorf("invalid search max results")
	}
	if config.Search.MaxScore <= 0 {
		return fmt.Errorf("invalid search max score")
	}

	if config.Matching.WordOrderThreshold <= 0 || config.Matching.WordOrderThreshold > 1 {
		return fmt.Errorf("invalid word order threshold")
	}
	if config.Matching.SimilarityThreshold <= 0 || config.Matching.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid similarity threshold")
	}

	if config.Pipeline.Workers <= 0 {
		return fmt.Errorf("invalid pipeline workers")
	}
	if config.Pipeline.LookupTimeout <= 0 {
		return fmt.Errorf("invalid lookup timeout")
	}
	if config.Pipeline.SessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
