// ABOUTME: Centralized configuration for the docqa server, CLI and MCP tools
// ABOUTME: Loads defaults, an optional YAML file, then environment variables, with validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the question answering system
type Config struct {
	// LLM settings
	LLMAPIKey         string        `yaml:"llm_api_key"`
	LLMBaseURL        string        `yaml:"llm_base_url"`
	LLMModel          string        `yaml:"llm_model"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	MaxRetries        int           `yaml:"llm_max_retries"`
	RetryDelay        time.Duration `yaml:"llm_retry_delay"`
	LLMRateLimit      float64       `yaml:"llm_rate_limit"`

	// Embedding settings
	Embedder           string `yaml:"embedder"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	EmbedBatchSize     int    `yaml:"embed_batch_size"`
	EmbedConcurrency   int    `yaml:"embed_concurrency"`

	// Cache settings
	CacheBackend  string        `yaml:"cache_backend"`
	CacheExpiry   time.Duration `yaml:"cache_expiry"`
	CacheTimeout  time.Duration `yaml:"cache_timeout"`
	RedisHost     string        `yaml:"redis_host"`
	RedisPort     int           `yaml:"redis_port"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPassword string        `yaml:"redis_password"`
	CharmHost     string        `yaml:"charm_host"`
	CharmDBName   string        `yaml:"charm_db"`
	CharmAutoSync bool          `yaml:"charm_auto_sync"`

	// Retrieval settings
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	TopK            int    `yaml:"top_k_results"`
	StoragePath     string `yaml:"storage_path"`
	DocumentsDir    string `yaml:"documents_dir"`
	MaxHistoryTurns int    `yaml:"max_history_turns"`

	// Server settings
	HTTPAddr       string  `yaml:"http_addr"`
	QueryRateLimit float64 `yaml:"query_rate_limit"`
	QueryRateBurst int     `yaml:"query_rate_burst"`
	LogLevel       string  `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() *Config {
	return &Config{
		LLMModel:           "llama-3.1-8b-instant",
		GenerationTimeout:  30 * time.Second,
		MaxRetries:         3,
		RetryDelay:         2 * time.Second,
		LLMRateLimit:       5,
		Embedder:           "openai",
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 384,
		EmbedBatchSize:     64,
		EmbedConcurrency:   4,
		CacheBackend:       "redis",
		CacheExpiry:        time.Hour,
		CacheTimeout:       500 * time.Millisecond,
		RedisHost:          "localhost",
		RedisPort:          6379,
		CharmHost:          "cloud.charm.sh",
		CharmDBName:        "docqa",
		CharmAutoSync:      true,
		ChunkSize:          500,
		ChunkOverlap:       50,
		TopK:               3,
		StoragePath:        filepath.Join(xdg.DataHome, "docqa", "index"),
		DocumentsDir:       "data/documents",
		MaxHistoryTurns:    20,
		HTTPAddr:           ":8000",
		QueryRateLimit:     10,
		QueryRateBurst:     20,
		LogLevel:           "info",
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile overlays a YAML file on the defaults, then applies environment variables.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.LLMAPIKey = getEnv("LLM_API_KEY", getEnv("GROQ_API_KEY", getEnv("OPENAI_API_KEY", c.LLMAPIKey)))
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.GenerationTimeout = getEnvDuration("GENERATION_TIMEOUT", c.GenerationTimeout)
	c.MaxRetries = getEnvInt("LLM_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("LLM_RETRY_DELAY", c.RetryDelay)
	c.LLMRateLimit = getEnvFloat("LLM_RATE_LIMIT", c.LLMRateLimit)

	c.Embedder = getEnv("EMBEDDER", c.Embedder)
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingDimension = getEnvInt("EMBEDDING_DIMENSION", c.EmbeddingDimension)
	c.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.EmbedConcurrency = getEnvInt("EMBED_CONCURRENCY", c.EmbedConcurrency)

	c.CacheBackend = getEnv("CACHE_BACKEND", c.CacheBackend)
	c.CacheExpiry = getEnvDuration("CACHE_EXPIRY", c.CacheExpiry)
	c.CacheTimeout = getEnvDuration("CACHE_TIMEOUT", c.CacheTimeout)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnvInt("REDIS_PORT", c.RedisPort)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.CharmHost = getEnv("CHARM_HOST", c.CharmHost)
	c.CharmDBName = getEnv("CHARM_DB", c.CharmDBName)
	c.CharmAutoSync = getEnvBool("CHARM_AUTO_SYNC", c.CharmAutoSync)

	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = getEnvInt("TOP_K_RESULTS", c.TopK)
	c.StoragePath = getEnv("STORAGE_PATH", c.StoragePath)
	c.DocumentsDir = getEnv("DOCUMENTS_DIR", c.DocumentsDir)
	c.MaxHistoryTurns = getEnvInt("MAX_HISTORY_TURNS", c.MaxHistoryTurns)

	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.QueryRateLimit = getEnvFloat("QUERY_RATE_LIMIT", c.QueryRateLimit)
	c.QueryRateBurst = getEnvInt("QUERY_RATE_BURST", c.QueryRateBurst)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.Embedder != "openai" && c.Embedder != "hash" {
		return fmt.Errorf("EMBEDDER must be openai or hash, got %q", c.Embedder)
	}
	switch c.CacheBackend {
	case "redis", "charm", "none":
	default:
		return fmt.Errorf("CACHE_BACKEND must be redis, charm or none, got %q", c.CacheBackend)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be 0-%d, got %d", c.ChunkSize-1, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K_RESULTS must be positive, got %d", c.TopK)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("LLM_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.EmbedBatchSize <= 0 || c.EmbedConcurrency <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE and EMBED_CONCURRENCY must be positive")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("REDIS_PORT must be 1-65535, got %d", c.RedisPort)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH must not be empty")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("30s") or bare integers as seconds ("3600")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
