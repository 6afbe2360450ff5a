// ABOUTME: Builds the shared runtime (config, logger, index, cache, LLM, pipeline) for commands
// ABOUTME: Owns cleanup of cache connections and the Charm KV store
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/docqa/internal/cache"
	"github.com/harper/docqa/internal/charm"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/conversation"
	"github.com/harper/docqa/internal/core"
	"github.com/harper/docqa/internal/index"
	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/loader"
	"github.com/harper/docqa/internal/models"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

// errNoAPIKey is reported by commands that need the LLM when no key is configured
var errNoAPIKey = errors.New("LLM API key not set (LLM_API_KEY, GROQ_API_KEY or OPENAI_API_KEY)")

// app is the fully wired runtime shared by the subcommands
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	pipeline *core.Pipeline
	closers  []io.Closer
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output and the MCP stdio transport.
func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	if quiet {
		lvl = log.ErrorLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		Prefix:          "docqa",
		ReportTimestamp: true,
	})
}

// loadConfig reads .env, the optional YAML file and the environment
func loadConfig() (*config.Config, error) {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newApp wires every component and restores the persisted index
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)
	a := &app{cfg: cfg, logger: logger}

	idx, err := index.New(cfg.EmbeddingDimension, cfg.StoragePath, logger)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	backend, err := a.cacheBackend()
	if err != nil {
		a.Close()
		return nil, err
	}
	responseCache := cache.New(ctx, backend, cache.Options{
		TTL:       cfg.CacheExpiry,
		OpTimeout: cfg.CacheTimeout,
	}, logger)

	embedder, generator, err := a.llmClients()
	if err != nil {
		a.Close()
		return nil, err
	}

	pipeline, err := core.NewPipeline(core.Deps{
		Index:         idx,
		Cache:         responseCache,
		Conversations: conversation.New(cfg.MaxHistoryTurns),
		Embedder:      embedder,
		Generator:     generator,
		Loader:        loader.NewDirectoryLoader(logger),
		Splitter:      loader.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		TopK:          cfg.TopK,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	a.pipeline = pipeline

	if _, err := pipeline.Restore(); err != nil {
		a.Close()
		return nil, fmt.Errorf("restoring index from %s: %w", cfg.StoragePath, err)
	}
	return a, nil
}

func (a *app) cacheBackend() (cache.Backend, error) {
	switch a.cfg.CacheBackend {
	case "redis":
		backend := cache.NewRedisBackend(cache.RedisConfig{
			Host:     a.cfg.RedisHost,
			Port:     a.cfg.RedisPort,
			DB:       a.cfg.RedisDB,
			Password: a.cfg.RedisPassword,
		})
		a.closers = append(a.closers, backend)
		return backend, nil
	case "charm":
		client, err := charm.NewClient(&charm.Config{
			Host:     a.cfg.CharmHost,
			DBName:   a.cfg.CharmDBName,
			AutoSync: a.cfg.CharmAutoSync,
		})
		if err != nil {
			// The cache is best-effort; run without it
			a.logger.Warn("charm cache unavailable, caching disabled", "err", err)
			return nil, nil
		}
		a.closers = append(a.closers, client)
		return cache.NewKVBackend(client, charm.IsNotFound), nil
	default:
		return nil, nil
	}
}

func (a *app) llmClients() (core.Embedder, core.Generator, error) {
	var client *llm.OpenAIClient
	if a.cfg.LLMAPIKey != "" {
		c, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:            a.cfg.LLMAPIKey,
			BaseURL:           a.cfg.LLMBaseURL,
			ChatModel:         a.cfg.LLMModel,
			EmbeddingModel:    openai.EmbeddingModel(a.cfg.EmbeddingModel),
			Dimension:         a.cfg.EmbeddingDimension,
			BatchSize:         a.cfg.EmbedBatchSize,
			Concurrency:       a.cfg.EmbedConcurrency,
			RateLimit:         a.cfg.LLMRateLimit,
			Temperature:       llm.DefaultTemperature,
			MaxTokens:         llm.DefaultMaxTokens,
			GenerationTimeout: a.cfg.GenerationTimeout,
			MaxRetries:        a.cfg.MaxRetries,
			RetryDelay:        a.cfg.RetryDelay,
		}, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating LLM client: %w", err)
		}
		client = c
	} else {
		a.logger.Warn("LLM API key not set, answer generation will not work")
	}

	var generator core.Generator = unconfiguredLLM{}
	if client != nil {
		generator = client
	}

	var embedder core.Embedder
	switch {
	case a.cfg.Embedder == "hash":
		embedder = llm.NewHashEmbedder(a.cfg.EmbeddingDimension)
	case client != nil:
		embedder = client
	default:
		embedder = unconfiguredLLM{}
	}
	return embedder, generator, nil
}

// Close releases cache connections
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("error during shutdown", "err", err)
		}
	}
	a.closers = nil
}

// unconfiguredLLM stands in for the OpenAI client when no API key is set
type unconfiguredLLM struct{}

func (unconfiguredLLM) EmbedQuery(ctx context.Context, text string) (models.Vector, error) {
	return nil, errNoAPIKey
}

func (unconfiguredLLM) EmbedDocuments(ctx context.Context, texts []string) ([]models.Vector, error) {
	return nil, errNoAPIKey
}

func (unconfiguredLLM) GenerateAnswer(ctx context.Context, question, contextText string, history []models.ConversationTurn) (string, error) {
	return "", errNoAPIKey
}
