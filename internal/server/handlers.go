package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lightsspeed/Rag-1/internal/answer"
	"github.com/lightsspeed/Rag-1/internal/embedding"
	"github.com/lightsspeed/Rag-1/internal/ingest"
	"github.com/lightsspeed/Rag-1/internal/retrieval"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

// maxUploadBytes caps the multipart form kept in memory per upload request.
const maxUploadBytes = 64 << 20

// FileStatus reports the outcome of one uploaded file.
type FileStatus struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"` // "success" or "failed"
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse is returned by POST /upload-pdfs.
type UploadResponse struct {
	Files       []FileStatus `json:"files"`
	TotalChunks int          `json:"total_chunks"`
}

// ChatTurn is one prior (question, answer) pair supplied by the caller.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question    string     `json:"question"`
	TopK        int        `json:"top_k"`
	ChatHistory []ChatTurn `json:"chat_history"`
}

// Source identifies one chunk used to ground the answer.
type Source struct {
	Filename   string  `json:"filename"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// QueryResponse is returned by POST /query. Sources are also populated on
// generation failures so callers can see what context would have been used.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Stage   string   `json:"stage,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error(), "validation", nil)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided; use multipart field 'files'", "validation", nil)
		return
	}

	var files []ingest.File
	resp := UploadResponse{}
	rejected := map[string]string{}
	for _, header := range headers {
		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			rejected[header.Filename] = "not a PDF file"
			continue
		}
		f, err := header.Open()
		if err != nil {
			rejected[header.Filename] = "unreadable upload: " + err.Error()
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			rejected[header.Filename] = "unreadable upload: " + err.Error()
			continue
		}
		files = append(files, ingest.File{Filename: header.Filename, Data: data})
	}

	result := s.ingestor.IngestAll(r.Context(), files)
	for _, fr := range result.Files {
		status := FileStatus{Filename: fr.Filename, Status: "success", ChunkCount: fr.ChunkCount}
		if fr.Err != nil {
			status = FileStatus{Filename: fr.Filename, Status: "failed", Error: fr.Err.Error()}
		}
		resp.Files = append(resp.Files, status)
	}
	for name, reason := range rejected {
		resp.Files = append(resp.Files, FileStatus{Filename: name, Status: "failed", Error: reason})
	}
	resp.TotalChunks = result.TotalChunks

	code := http.StatusOK
	if result.Succeeded == 0 {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "validation", nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty", "validation", nil)
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "top_k must be a positive integer", "validation", nil)
		return
	}

	history := make([]answer.Turn, len(req.ChatHistory))
	for i, turn := range req.ChatHistory {
		history[i] = answer.Turn{Question: turn.Question, Answer: turn.Answer}
	}

	result, err := s.answerer.Answer(r.Context(), req.Question, history, req.TopK)
	if err != nil {
		var sources []Source
		if result != nil {
			sources = toSources(result.Sources)
		}
		s.logger.Warn("Query failed", "stage", stageOf(err), "error", err)
		writeError(w, http.StatusBadGateway, err.Error(), stageOf(err), sources)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:  result.Answer,
		Sources: toSources(result.Sources),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(r.Context()); err != nil {
		s.logger.Error("Clear failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error(), "indexing", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "database cleared"})
}

// stageOf names the pipeline stage a query error came from, to aid
// diagnosis on the caller's side.
func stageOf(err error) string {
	switch {
	case errors.Is(err, embedding.ErrEmbeddingService):
		return "embedding"
	case errors.Is(err, storage.ErrIndexUnavailable):
		return "retrieval"
	case errors.Is(err, answer.ErrGeneration):
		return "generation"
	default:
		return ""
	}
}

func toSources(matches []retrieval.Match) []Source {
	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = Source{
			Filename:   m.Chunk.Filename,
			Page:       m.Chunk.Page,
			ChunkIndex: m.Chunk.ChunkIndex,
			DocumentID: m.Chunk.DocumentID,
			Score:      m.Score,
		}
	}
	return sources
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, stage string, sources []Source) {
	writeJSON(w, code, errorResponse{Error: msg, Stage: stage, Sources: sources})
}
