package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"imseek/internal/domain"
	"imseek/internal/usecase"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []domain.Hit `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK < 0 {
		s.respondError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.config.Search.TopK
	}

	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("top_k", topK))
	hits, err := s.engine.Search(r.Context(), req.Query, topK)
	if err != nil {
		if errors.Is(err, usecase.ErrIncompatibleIndex) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []domain.Hit{}
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Query: req.Query, Count: len(hits), Results: hits})
}

type indexRequest struct {
	Path string `json:"path"`
}

type indexResponse struct {
	Path    string `json:"path"`
	Indexed int    `json:"indexed"`
	Failed  int    `json:"failed"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.logger.Info("rebuild requested", zap.String("path", abs))
	summary, err := s.builder.Build(r.Context(), abs, nil)
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.engine.Reload(); err != nil {
		s.logger.Error("reload after rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, indexResponse{
		Path:    abs,
		Indexed: summary.Indexed,
		Failed:  summary.Failed,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
