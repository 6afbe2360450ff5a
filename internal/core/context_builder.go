// ABOUTME: Assembles retrieved chunks into the model context and citation list
// ABOUTME: Blocks are labeled with source and page and kept in ascending distance order
package core

import (
	"strings"

	"github.com/harper/docqa/internal/models"
)

// ContextSeparator divides context blocks handed to the model
const ContextSeparator = "\n\n---\n\n"

// BuildContext renders search results as "[Source: x.pdf (Page 2)]\n<text>" blocks
func BuildContext(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, formatBlock(r.Chunk))
	}
	return strings.Join(parts, ContextSeparator)
}

func formatBlock(chunk models.Chunk) string {
	var b strings.Builder
	b.WriteString("[Source: ")
	b.WriteString(chunk.Metadata.Label())
	b.WriteString("]\n")
	b.WriteString(chunk.Text)
	return b.String()
}

// BuildSources turns search results into citations, in result order
func BuildSources(results []models.SearchResult) []models.SourceRef {
	sources := make([]models.SourceRef, 0, len(results))
	for _, r := range results {
		sources = append(sources, models.NewSourceRef(r.Chunk))
	}
	return sources
}
