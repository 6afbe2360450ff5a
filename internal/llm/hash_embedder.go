// ABOUTME: Deterministic feature-hashing embedder that needs no network access
// ABOUTME: Maps lowercase word tokens into a fixed number of buckets and L2-normalizes
package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/harper/docqa/internal/models"
)

// HashEmbedder produces bag-of-words vectors via FNV-1a bucket hashing.
// Identical text always yields identical vectors.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hashing embedder; dimension <= 0 uses models.DefaultDimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = models.DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the vector length
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

// EmbedQuery embeds a single question
func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) (models.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

// EmbedDocuments embeds texts in order
func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([]models.Vector, error) {
	out := make([]models.Vector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) models.Vector {
	vec := make(models.Vector, h.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum64()
		bucket := int(sum % uint64(h.dimension))
		// High bit picks the sign so collisions partially cancel
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
