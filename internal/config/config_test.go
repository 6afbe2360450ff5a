// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies defaults, environment overrides, YAML overlay and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMModel != "llama-3.1-8b-instant" {
		t.Errorf("LLMModel = %s, want llama-3.1-8b-instant", cfg.LLMModel)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Errorf("EmbeddingDimension = %d, want 384", cfg.EmbeddingDimension)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d, want 500/50", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d, want 3", cfg.TopK)
	}
	if cfg.CacheExpiry != time.Hour {
		t.Errorf("CacheExpiry = %v, want 1h", cfg.CacheExpiry)
	}
	if cfg.CacheTimeout != 500*time.Millisecond {
		t.Errorf("CacheTimeout = %v, want 500ms", cfg.CacheTimeout)
	}
	if cfg.RedisHost != "localhost" || cfg.RedisPort != 6379 || cfg.RedisDB != 0 {
		t.Errorf("redis = %s:%d/%d, want localhost:6379/0", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
	}
	if cfg.GenerationTimeout != 30*time.Second {
		t.Errorf("GenerationTimeout = %v, want 30s", cfg.GenerationTimeout)
	}
	if cfg.MaxHistoryTurns != 20 {
		t.Errorf("MaxHistoryTurns = %d, want 20", cfg.MaxHistoryTurns)
	}
	if cfg.DocumentsDir != "data/documents" {
		t.Errorf("DocumentsDir = %s, want data/documents", cfg.DocumentsDir)
	}
	if !strings.HasSuffix(cfg.StoragePath, filepath.Join("docqa", "index")) {
		t.Errorf("StoragePath = %s, want .../docqa/index", cfg.StoragePath)
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %s, want :8000", cfg.HTTPAddr)
	}
	if cfg.LLMAPIKey != "" {
		t.Error("LLMAPIKey should be empty without environment")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("LLM_API_KEY", "test-key")
	os.Setenv("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	os.Setenv("LLM_MODEL", "llama-3.3-70b")
	os.Setenv("EMBEDDER", "hash")
	os.Setenv("EMBEDDING_DIMENSION", "128")
	os.Setenv("CACHE_BACKEND", "none")
	os.Setenv("CACHE_EXPIRY", "120")
	os.Setenv("REDIS_PORT", "6380")
	os.Setenv("TOP_K_RESULTS", "5")
	os.Setenv("STORAGE_PATH", "/tmp/docqa-index")
	os.Setenv("GENERATION_TIMEOUT", "10s")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMAPIKey != "test-key" {
		t.Errorf("LLMAPIKey = %s, want test-key", cfg.LLMAPIKey)
	}
	if cfg.LLMBaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("LLMBaseURL = %s", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "llama-3.3-70b" {
		t.Errorf("LLMModel = %s, want llama-3.3-70b", cfg.LLMModel)
	}
	if cfg.Embedder != "hash" || cfg.EmbeddingDimension != 128 {
		t.Errorf("embedder = %s/%d, want hash/128", cfg.Embedder, cfg.EmbeddingDimension)
	}
	if cfg.CacheBackend != "none" {
		t.Errorf("CacheBackend = %s, want none", cfg.CacheBackend)
	}
	if cfg.CacheExpiry != 2*time.Minute {
		t.Errorf("CacheExpiry = %v, want 2m (bare seconds)", cfg.CacheExpiry)
	}
	if cfg.RedisPort != 6380 {
		t.Errorf("RedisPort = %d, want 6380", cfg.RedisPort)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.StoragePath != "/tmp/docqa-index" {
		t.Errorf("StoragePath = %s", cfg.StoragePath)
	}
	if cfg.GenerationTimeout != 10*time.Second {
		t.Errorf("GenerationTimeout = %v, want 10s", cfg.GenerationTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestLoad_APIKeyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"groq key", map[string]string{"GROQ_API_KEY": "groq"}, "groq"},
		{"openai key", map[string]string{"OPENAI_API_KEY": "openai"}, "openai"},
		{"llm key wins", map[string]string{"LLM_API_KEY": "llm", "GROQ_API_KEY": "groq"}, "llm"},
		{"groq before openai", map[string]string{"GROQ_API_KEY": "groq", "OPENAI_API_KEY": "openai"}, "groq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.LLMAPIKey != tt.want {
				t.Errorf("LLMAPIKey = %s, want %s", cfg.LLMAPIKey, tt.want)
			}
		})
	}
}

func TestLoadFile_YAMLOverlayThenEnv(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	yamlContent := `
top_k_results: 7
chunk_size: 800
cache_backend: charm
cache_expiry: 10m
documents_dir: /srv/policies
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv("TOP_K_RESULTS", "2")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.TopK != 2 {
		t.Errorf("TopK = %d, want 2 (env beats file)", cfg.TopK)
	}
	if cfg.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want 800", cfg.ChunkSize)
	}
	if cfg.CacheBackend != "charm" {
		t.Errorf("CacheBackend = %s, want charm", cfg.CacheBackend)
	}
	if cfg.CacheExpiry != 10*time.Minute {
		t.Errorf("CacheExpiry = %v, want 10m", cfg.CacheExpiry)
	}
	if cfg.DocumentsDir != "/srv/policies" {
		t.Errorf("DocumentsDir = %s", cfg.DocumentsDir)
	}
	if cfg.ChunkOverlap != 50 {
		t.Errorf("ChunkOverlap = %d, want default 50", cfg.ChunkOverlap)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	os.Clearenv()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("top_k_results: [not, a, number]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should fail for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimension", func(c *Config) { c.EmbeddingDimension = 0 }},
		{"unknown embedder", func(c *Config) { c.Embedder = "bert" }},
		{"unknown cache backend", func(c *Config) { c.CacheBackend = "memcached" }},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"too many retries", func(c *Config) { c.MaxRetries = 15 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero batch size", func(c *Config) { c.EmbedBatchSize = 0 }},
		{"bad redis port", func(c *Config) { c.RedisPort = 70000 }},
		{"empty storage path", func(c *Config) { c.StoragePath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults() should validate, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"3600", time.Hour},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
