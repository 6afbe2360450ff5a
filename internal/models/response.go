// ABOUTME: Response models shared by the query pipeline, cache, API and MCP tools
// ABOUTME: CacheEntry deliberately omits conversation id and cached flag
package models

// SourcePreviewLength is the number of characters kept in a SourceRef preview
const SourcePreviewLength = 300

// SourceRef cites a retrieved chunk in an answer
type SourceRef struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    *int   `json:"page"`
}

// NewSourceRef builds a citation from a chunk, truncating its text to the preview length
func NewSourceRef(chunk Chunk) SourceRef {
	return SourceRef{
		Content: Preview(chunk.Text, SourcePreviewLength),
		Source:  chunk.Metadata.SourceOrUnknown(),
		Page:    chunk.Metadata.Page,
	}
}

// Preview keeps the first maxLen characters of s, appending "..." when it cut anything
func Preview(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// CacheEntry is what the response cache stores for a question
type CacheEntry struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

// QueryResponse is the result of answering one question
type QueryResponse struct {
	Answer         string      `json:"answer"`
	Sources        []SourceRef `json:"sources"`
	ConversationID string      `json:"conversation_id"`
	Cached         bool        `json:"cached"`
}

// CacheEntry strips the conversation-specific fields off a response
func (r QueryResponse) CacheEntry() CacheEntry {
	return CacheEntry{Answer: r.Answer, Sources: r.Sources}
}

// IngestResult reports what an indexing run did
type IngestResult struct {
	DocumentsProcessed int `json:"documents_processed"`
	ChunksCreated      int `json:"chunks_created"`
}

// ChunkPreview is a short view of a stored chunk for debugging
type ChunkPreview struct {
	Source         string `json:"source"`
	Page           *int   `json:"page"`
	ContentPreview string `json:"content_preview"`
}

// StoreInfo describes the vector index contents
type StoreInfo struct {
	TotalVectors       int            `json:"total_vectors"`
	TotalDocuments     int            `json:"total_documents"`
	TotalSources       int            `json:"total_sources"`
	EmbeddingDimension int            `json:"embedding_dimension"`
	DocumentsSample    []ChunkPreview `json:"documents_sample"`
}

// Health is the liveness summary reported by the service
type Health struct {
	Status            string `json:"status"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
	RedisConnected    bool   `json:"redis_connected"`
}
