// ABOUTME: MCP tool handler implementations for the docqa server
// ABOUTME: Each handler delegates to the question answering service and returns JSON text
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/docqa/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// Service is the subset of the pipeline the tools need
type Service interface {
	Query(ctx context.Context, question, conversationID string) (*models.QueryResponse, error)
	IndexDocuments(ctx context.Context, dir string) (*models.IngestResult, error)
	ClearIndex(ctx context.Context) error
	StoreInfo() models.StoreInfo
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	service      Service
	documentsDir string
	logger       *log.Logger
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	conversationID := request.GetString("conversation_id", "")

	resp, err := h.service.Query(ctx, question, conversationID)
	if err != nil {
		h.logger.Error("ask_question failed", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(resp)
}

// resolveDirectory maps a requested directory onto the documents directory.
// Relative paths are taken from the documents directory; anything outside it is rejected.
func (h *Handlers) resolveDirectory(requested string) (string, error) {
	if requested == "" {
		return h.documentsDir, nil
	}
	dir := requested
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(h.documentsDir, dir)
	}

	base, err := filepath.Abs(h.documentsDir)
	if err != nil {
		return "", fmt.Errorf("resolving documents directory: %w", err)
	}
	target, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", requested, err)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("directory %q is outside the documents directory %s", requested, h.documentsDir)
	}
	return dir, nil
}

// IndexDocuments handles the index_documents tool
func (h *Handlers) IndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := h.resolveDirectory(request.GetString("directory", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := h.service.IndexDocuments(ctx, dir)
	if err != nil {
		h.logger.Error("index_documents failed", "dir", dir, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"message":             "Documents indexed successfully",
		"directory":           dir,
		"documents_processed": result.DocumentsProcessed,
		"chunks_created":      result.ChunksCreated,
	})
}

// StoreInfo handles the store_info tool
func (h *Handlers) StoreInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.service.StoreInfo())
}

// ClearIndex handles the clear_index tool
func (h *Handlers) ClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.service.ClearIndex(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear index: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"message": "Index cleared successfully"})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
