package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nyaya/internal/domain"
)

type answerRequest struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Court    string `json:"court,omitempty"`
	FromYear int    `json:"from_year,omitempty"`
	ToYear   int    `json:"to_year,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	lang := domain.LangEnglish
	switch req.Language {
	case "", "en":
	case "hi":
		lang = domain.LangHindi
	default:
		s.respondError(w, http.StatusBadRequest, "language must be 'en' or 'hi'")
		return
	}

	filters := domain.Filters{Court: req.Court}
	if req.FromYear > 0 {
		filters.DateFrom = time.Date(req.FromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if req.ToYear > 0 {
		filters.DateUntil = time.Date(req.ToYear, time.December, 31, 23, 59, 59, 0, time.UTC)
	}

	answer, err := s.answerer.Answer(r.Context(), req.Question, lang, req.TopK, filters)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("answer failed", zap.Error(err))
		if errors.Is(err, domain.ErrIndexUnavailable) || errors.Is(err, domain.ErrEmbedding) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.docs.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "judgment not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.docs.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":        stats.TotalDocs,
		"chunks":           stats.TotalChunks,
		"dimension":        stats.Dimension,
		"index_generation": s.index.Generation(),
	})
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
