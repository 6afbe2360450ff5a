// ABOUTME: Ingestion, maintenance and introspection operations on the Pipeline
// ABOUTME: Load, split, embed, add and persist documents; clear, describe and health-check the index
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/docqa/internal/models"
)

// StoreSampleSize is the number of chunks previewed by StoreInfo
const StoreSampleSize = 3

// storePreviewLength is the number of characters shown per sampled chunk
const storePreviewLength = 100

// IndexDocuments loads every supported document in dir and appends its chunks
// to the index, persisting on success. Any failure before the add leaves the
// index untouched and skips persistence.
func (p *Pipeline) IndexDocuments(ctx context.Context, dir string) (*models.IngestResult, error) {
	if p.loader == nil || p.splitter == nil {
		return nil, fmt.Errorf("pipeline has no document loader configured")
	}
	start := time.Now()

	docs, err := p.loader.Load(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocumentsFound, dir)
	}

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, ErrNoChunksProduced
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if err := p.index.Add(chunks, vectors); err != nil {
		return nil, fmt.Errorf("failed to add chunks to index: %w", err)
	}
	if err := p.index.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	p.logger.Info("indexed documents",
		"dir", dir,
		"documents", len(docs),
		"chunks", len(chunks),
		"total_vectors", p.index.Size(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return &models.IngestResult{
		DocumentsProcessed: len(docs),
		ChunksCreated:      len(chunks),
	}, nil
}

// ClearIndex empties the index and persists the empty state.
// Cached answers are left to expire on their own.
func (p *Pipeline) ClearIndex(ctx context.Context) error {
	p.index.Clear()
	if err := p.index.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist cleared index: %w", err)
	}
	p.logger.Info("index cleared")
	return nil
}

// Restore loads persisted index artifacts, if any
func (p *Pipeline) Restore() (bool, error) {
	loaded, err := p.index.Restore()
	if err != nil {
		return false, err
	}
	if loaded {
		p.logger.Info("restored index", "vectors", p.index.Size(), "dir", p.index.Dir())
	} else {
		p.logger.Info("no persisted index found, starting empty", "dir", p.index.Dir())
	}
	return loaded, nil
}

// StoreInfo summarizes the index contents
func (p *Pipeline) StoreInfo() models.StoreInfo {
	sample := p.index.Sample(StoreSampleSize)
	previews := make([]models.ChunkPreview, 0, len(sample))
	for _, c := range sample {
		previews = append(previews, models.ChunkPreview{
			Source:         c.Metadata.SourceOrUnknown(),
			Page:           c.Metadata.Page,
			ContentPreview: headPreview(c.Text, storePreviewLength),
		})
	}

	size := p.index.Size()
	return models.StoreInfo{
		TotalVectors:       size,
		TotalDocuments:     size,
		TotalSources:       p.index.SourceCount(),
		EmbeddingDimension: p.index.Dimension(),
		DocumentsSample:    previews,
	}
}

// Health reports index and cache state
func (p *Pipeline) Health(ctx context.Context) models.Health {
	return models.Health{
		Status:            "healthy",
		VectorStoreLoaded: p.index.Size() > 0,
		RedisConnected:    p.cache.IsAvailable(ctx),
	}
}

// headPreview always appends "..." to the first n characters
func headPreview(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
