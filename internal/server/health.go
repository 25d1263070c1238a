package server

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	OpenAI      string `json:"openai"`
	ChunkCount  uint64 `json:"chunk_count"`
	Timestamp   string `json:"timestamp"`
}

// handleHealth reports reachability of the vector store and the
// embedding/generation backend, plus the number of indexed chunks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "healthy",
		VectorStore: "connected",
		OpenAI:      "connected",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.index.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.VectorStore = "disconnected"
	} else if count, err := s.index.Count(ctx); err == nil {
		resp.ChunkCount = count
	}

	if err := s.models.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.OpenAI = "disconnected"
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
