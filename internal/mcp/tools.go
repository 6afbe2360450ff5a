// ABOUTME: MCP tool definitions and registration for the docqa server
// ABOUTME: Exposes ask_question, index_documents, store_info and clear_index over stdio
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, service Service, documentsDir string, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	handlers := &Handlers{
		service:      service,
		documentsDir: documentsDir,
		logger:       logger.WithPrefix("mcp"),
	}

	// 1. ask_question - Answer a question from the indexed documents
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the indexed documents. Returns the answer, cited sources and a conversation id for follow-up questions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer",
				},
				"conversation_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional id returned by a previous answer, to continue that conversation",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 2. index_documents - Index the documents directory
	server.AddTool(mcp.Tool{
		Name:        "index_documents",
		Description: "Load, chunk and embed every .txt, .md and .pdf file in the documents directory and add them to the index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Subdirectory of the configured documents directory to index (default: the documents directory itself). Paths outside it are rejected.",
				},
			},
		},
	}, handlers.IndexDocuments)

	// 3. store_info - Describe the index
	server.AddTool(mcp.Tool{
		Name:        "store_info",
		Description: "Report the number of indexed chunks and sources, the embedding dimension and a sample of stored chunks.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.StoreInfo)

	// 4. clear_index - Remove everything from the index
	server.AddTool(mcp.Tool{
		Name:        "clear_index",
		Description: "Remove all indexed chunks and persist the empty index. Use before re-indexing.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ClearIndex)

	return handlers
}
