// ABOUTME: OpenAI-compatible client for embeddings and grounded answer generation
// ABOUTME: Works against OpenAI or Groq via base URL, with retries, pacing and batched embedding
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "llama-3.1-8b-instant"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultTemperature keeps answers close to the retrieved context
	DefaultTemperature = 0.3
	// DefaultMaxTokens bounds answer length
	DefaultMaxTokens = 500
	// DefaultGenerationTimeout bounds a full GenerateAnswer call including retries
	DefaultGenerationTimeout = 30 * time.Second

	requestTimeout = 30 * time.Second
)

// ErrGenerationTimeout is returned when answer generation exceeds its deadline
var ErrGenerationTimeout = errors.New("answer generation timed out")

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	EmbeddingModel    openai.EmbeddingModel
	Dimension         int
	BatchSize         int
	Concurrency       int
	RateLimit         float64
	Temperature       float32
	MaxTokens         int
	GenerationTimeout time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:            apiKey,
		ChatModel:         DefaultChatModel,
		EmbeddingModel:    DefaultEmbeddingModel,
		Dimension:         models.DefaultDimension,
		BatchSize:         64,
		Concurrency:       4,
		RateLimit:         5,
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
		GenerationTimeout: DefaultGenerationTimeout,
		MaxRetries:        3,
		RetryDelay:        time.Second * 2,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client            *openai.Client
	chatModel         string
	embeddingModel    openai.EmbeddingModel
	dimension         int
	batchSize         int
	concurrency       int
	temperature       float32
	maxTokens         int
	generationTimeout time.Duration
	maxRetries        int
	retryDelay        time.Duration
	limiter           *rate.Limiter
	logger            *log.Logger
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string, logger *log.Logger) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey), logger)
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig, logger *log.Logger) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", config.Dimension)
	}
	if logger == nil {
		logger = log.Default()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	limit := rate.Inf
	burst := 1
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
		burst = max(1, int(config.RateLimit))
	}

	return &OpenAIClient{
		client:            openai.NewClientWithConfig(clientConfig),
		chatModel:         config.ChatModel,
		embeddingModel:    config.EmbeddingModel,
		dimension:         config.Dimension,
		batchSize:         max(1, config.BatchSize),
		concurrency:       max(1, config.Concurrency),
		temperature:       config.Temperature,
		maxTokens:         config.MaxTokens,
		generationTimeout: config.GenerationTimeout,
		maxRetries:        max(0, config.MaxRetries),
		retryDelay:        config.RetryDelay,
		limiter:           rate.NewLimiter(limit, burst),
		logger:            logger.WithPrefix("llm"),
	}, nil
}

// GetClient returns the underlying OpenAI client for direct use
func (c *OpenAIClient) GetClient() *openai.Client {
	return c.client
}

// Dimension returns the embedding vector length requested from the API
func (c *OpenAIClient) Dimension() int {
	return c.dimension
}

// EmbedQuery embeds a single question
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) (models.Vector, error) {
	vectors, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts in batches, running up to the configured number
// of batches concurrently. Output order matches input order.
func (c *OpenAIClient) EmbedDocuments(ctx context.Context, texts []string) ([]models.Vector, error) {
	out := make([]models.Vector, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := c.embedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.logger.Debug("embedded documents", "count", len(texts))
	return out, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([]models.Vector, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := c.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      c.embeddingModel,
			Dimensions: c.dimension,
		})
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			c.logger.Warn("embedding request failed", "attempt", attempt+1, "err", err)
			continue
		}

		vectors, err := c.collectEmbeddings(resp, len(texts))
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *OpenAIClient) collectEmbeddings(resp openai.EmbeddingResponse, want int) ([]models.Vector, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(resp.Data))
	}

	vectors := make([]models.Vector, want)
	for i, data := range resp.Data {
		pos := data.Index
		if pos < 0 || pos >= want || vectors[pos] != nil {
			pos = i
		}
		if len(data.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", pos, len(data.Embedding), c.dimension)
		}
		vectors[pos] = models.Vector(data.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding %d missing from response", i)
		}
	}
	return vectors, nil
}

// GenerateAnswer asks the chat model to answer the question from the given
// context, with prior turns included. Exceeding the generation timeout yields
// ErrGenerationTimeout.
func (c *OpenAIClient) GenerateAnswer(ctx context.Context, question, contextText string, history []models.ConversationTurn) (string, error) {
	genCtx := ctx
	if c.generationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.generationTimeout)
		defer cancel()
	}

	messages := BuildMessages(question, contextText, history)
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(genCtx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return "", c.generationError(ctx, genCtx, err)
			}
		}
		if err := c.limiter.Wait(genCtx); err != nil {
			return "", c.generationError(ctx, genCtx, err)
		}

		resp, err := c.client.CreateChatCompletion(genCtx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})

		if err != nil {
			if genCtx.Err() != nil {
				return "", c.generationError(ctx, genCtx, err)
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			c.logger.Warn("chat completion failed", "attempt", attempt+1, "err", err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed to generate answer after %d attempts: %w", c.maxRetries+1, lastErr)
}

// generationError maps a deadline on the generation context to ErrGenerationTimeout
// while passing caller cancellation through unchanged.
func (c *OpenAIClient) generationError(parent, genCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("generation timed out", "timeout", c.generationTimeout)
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, c.generationTimeout)
	}
	return err
}
