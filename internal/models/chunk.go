// ABOUTME: Chunk and Document represent indexed text units with provenance
// ABOUTME: Metadata carries the source file name and an optional 1-based page
package models

import "fmt"

// Metadata describes where a piece of text came from
type Metadata struct {
	Source string `json:"source"`
	Page   *int   `json:"page,omitempty"`
}

// Label renders the metadata the way it is shown to the model, e.g. "x.pdf (Page 2)"
func (m Metadata) Label() string {
	source := m.SourceOrUnknown()
	if m.Page != nil && *m.Page != 0 {
		return fmt.Sprintf("%s (Page %d)", source, *m.Page)
	}
	return source
}

// SourceOrUnknown returns the source name, or "Unknown" when it was never set
func (m Metadata) SourceOrUnknown() string {
	if m.Source == "" {
		return "Unknown"
	}
	return m.Source
}

// Document is one loaded unit of text: a whole text file or a single PDF page
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a split piece of a Document. Chunks are immutable once created.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// IntPtr returns a pointer to n, for optional page numbers
func IntPtr(n int) *int {
	return &n
}
