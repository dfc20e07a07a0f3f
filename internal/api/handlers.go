package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lehmann314159/lexicon/internal/pagination"
	"github.com/lehmann314159/lexicon/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	wordService *services.WordService
	logger      logrus.FieldLogger
}

// NewHandler creates a new handler
func NewHandler(wordService *services.WordService, logger logrus.FieldLogger) *Handler {
	return &Handler{
		wordService: wordService,
		logger:      logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to its HTTP status
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrWordNotFound):
		writeError(w, http.StatusNotFound, "word not found")
	case errors.Is(err, services.ErrFavoriteNotFound):
		writeError(w, http.StatusNotFound, "favorite not found")
	case errors.Is(err, pagination.ErrMalformedCursor):
		writeError(w, http.StatusBadRequest, "invalid cursor")
	case errors.Is(err, pagination.ErrInvalidPageSize):
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
	case errors.Is(err, services.ErrEnrichmentUnavailable):
		writeError(w, http.StatusServiceUnavailable, "dictionary unavailable")
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pageParams reads the cursor and limit query parameters
func pageParams(r *http.Request) (string, int, error) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return cursor, pagination.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", pagination.ErrInvalidPageSize, limitStr)
	}
	return cursor, limit, nil
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "English Dictionary"})
}

// ListWords handles GET /entries/en
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	cursor, limit, err := pageParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	page, err := h.wordService.ListWords(r.Context(), r.URL.Query().Get("search"), cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GetWord handles GET /entries/en/{word}
func (h *Handler) GetWord(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	entry, status, err := h.wordService.Resolve(r.Context(), chi.URLParam(r, "word"), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Cache", string(status))
	w.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, entry)
}

// AddFavorite handles POST /entries/en/{word}/favorite
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	fav, err := h.wordService.AddFavorite(r.Context(), chi.URLParam(r, "word"), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, fav)
}

// RemoveFavorite handles DELETE /entries/en/{word}/favorite
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.wordService.RemoveFavorite(r.Context(), chi.URLParam(r, "word"), userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /entries/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	cursor, limit, err := pageParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	page, err := h.wordService.History(r.Context(), userID, cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Favorites handles GET /entries/favorites
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	cursor, limit, err := pageParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	page, err := h.wordService.Favorites(r.Context(), userID, cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.wordService.Ping(r.Context()); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
