// ABOUTME: HTTP handlers mapping API requests onto the question answering service
// ABOUTME: Errors are reported as {"detail": "..."} with FastAPI-compatible status codes
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/harper/docqa/internal/core"
)

type queryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ingestResponse struct {
	Message            string `json:"message"`
	DocumentsProcessed int    `json:"documents_processed"`
	ChunksCreated      int    `json:"chunks_created"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type rootResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Medical Policy RAG Chatbot API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Health(r.Context()))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusUnprocessableEntity, "question must not be empty")
		return
	}

	resp, err := s.service.Query(r.Context(), req.Question, req.ConversationID)
	if err != nil {
		if errors.Is(err, core.ErrEmptyQuestion) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("query failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.IndexDocuments(r.Context(), s.documentsDir)
	if err != nil {
		s.logger.Error("indexing failed", "dir", s.documentsDir, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Message:            "Documents indexed successfully",
		DocumentsProcessed: result.DocumentsProcessed,
		ChunksCreated:      result.ChunksCreated,
	})
}

func (s *Server) handleStoreInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.StoreInfo())
}

func (s *Server) handleClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearIndex(r.Context()); err != nil {
		s.logger.Error("clear failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Index cleared successfully"})
}
