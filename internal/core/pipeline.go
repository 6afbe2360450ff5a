// ABOUTME: Pipeline orchestrates question answering and document ingestion
// ABOUTME: Composes the response cache, vector index, conversation store, embedder and generator
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/docqa/internal/conversation"
	"github.com/harper/docqa/internal/index"
	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/models"
)

// Fixed answers returned without calling the model
const (
	NoDocumentsAnswer = "⚠️ No documents have been indexed yet. Please upload and index documents first using the /index-documents endpoint."
	NoResultsAnswer   = "I couldn't find any relevant information in the indexed documents to answer your question."
	TimeoutAnswer     = "Generating the answer took too long. Please try again."
)

// DefaultTopK is the number of chunks retrieved per question
const DefaultTopK = 3

var (
	ErrEmptyQuestion    = errors.New("question must not be empty")
	ErrNoDocumentsFound = errors.New("no documents found")
	ErrNoChunksProduced = errors.New("no chunks produced from documents")
)

// Embedder turns text into vectors of a fixed dimension
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) (models.Vector, error)
	EmbedDocuments(ctx context.Context, texts []string) ([]models.Vector, error)
}

// Generator produces an answer from a question, retrieved context and prior turns
type Generator interface {
	GenerateAnswer(ctx context.Context, question, contextText string, history []models.ConversationTurn) (string, error)
}

// DocumentLoader reads raw documents from a directory
type DocumentLoader interface {
	Load(ctx context.Context, dir string) ([]models.Document, error)
}

// Splitter divides documents into chunks
type Splitter interface {
	Split(docs []models.Document) []models.Chunk
}

// ResponseCache is the best-effort answer cache
type ResponseCache interface {
	Get(ctx context.Context, question string) (*models.CacheEntry, bool)
	Set(ctx context.Context, question string, entry models.CacheEntry)
	IsAvailable(ctx context.Context) bool
}

// Deps wires a Pipeline together
type Deps struct {
	Index         *index.VectorIndex
	Cache         ResponseCache
	Conversations *conversation.Store
	Embedder      Embedder
	Generator     Generator
	Loader        DocumentLoader
	Splitter      Splitter
	TopK          int
	Logger        *log.Logger
}

// Pipeline answers questions against the indexed corpus
type Pipeline struct {
	index         *index.VectorIndex
	cache         ResponseCache
	conversations *conversation.Store
	embedder      Embedder
	generator     Generator
	loader        DocumentLoader
	splitter      Splitter
	topK          int
	logger        *log.Logger
}

// NewPipeline validates deps and builds a Pipeline
func NewPipeline(deps Deps) (*Pipeline, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("response cache is required")
	}
	if deps.Conversations == nil {
		deps.Conversations = conversation.New(conversation.DefaultMaxTurns)
	}
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	return &Pipeline{
		index:         deps.Index,
		cache:         deps.Cache,
		conversations: deps.Conversations,
		embedder:      deps.Embedder,
		generator:     deps.Generator,
		loader:        deps.Loader,
		splitter:      deps.Splitter,
		topK:          deps.TopK,
		logger:        deps.Logger.WithPrefix("pipeline"),
	}, nil
}

// Index exposes the underlying vector index
func (p *Pipeline) Index() *index.VectorIndex {
	return p.index
}

// Query answers a question. An empty conversationID starts a new conversation.
func (p *Pipeline) Query(ctx context.Context, question, conversationID string) (*models.QueryResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if entry, ok := p.cache.Get(ctx, question); ok {
		p.logger.Debug("cache hit", "conversation_id", conversationID)
		return &models.QueryResponse{
			Answer:         entry.Answer,
			Sources:        nonNilSources(entry.Sources),
			ConversationID: conversationID,
			Cached:         true,
		}, nil
	}

	if p.index.Size() == 0 {
		return emptyResponse(NoDocumentsAnswer, conversationID), nil
	}

	queryVector, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results := p.index.Search(queryVector, p.topK)
	p.logger.Debug("retrieved chunks", "results", len(results), "index_size", p.index.Size())
	for i, r := range results {
		p.logger.Debug("result", "rank", i+1, "distance", r.Distance, "source", r.Chunk.Metadata.SourceOrUnknown())
	}
	if len(results) == 0 {
		return emptyResponse(NoResultsAnswer, conversationID), nil
	}

	contextText := BuildContext(results)
	history := p.conversations.History(conversationID)
	sources := BuildSources(results)

	answer, err := p.generator.GenerateAnswer(ctx, question, contextText, history)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &models.QueryResponse{
			Answer:         generationFailureAnswer(err),
			Sources:        sources,
			ConversationID: conversationID,
		}, nil
	}

	p.conversations.Append(conversationID,
		models.ConversationTurn{Role: models.RoleUser, Content: question},
		models.ConversationTurn{Role: models.RoleAssistant, Content: answer},
	)

	resp := &models.QueryResponse{
		Answer:         answer,
		Sources:        sources,
		ConversationID: conversationID,
	}
	p.cache.Set(ctx, question, resp.CacheEntry())
	return resp, nil
}

func generationFailureAnswer(err error) string {
	if errors.Is(err, llm.ErrGenerationTimeout) {
		return TimeoutAnswer
	}
	return fmt.Sprintf("Error generating response: %v", err)
}

func emptyResponse(answer, conversationID string) *models.QueryResponse {
	return &models.QueryResponse{
		Answer:         answer,
		Sources:        []models.SourceRef{},
		ConversationID: conversationID,
	}
}

func nonNilSources(sources []models.SourceRef) []models.SourceRef {
	if sources == nil {
		return []models.SourceRef{}
	}
	return sources
}
