package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

type publishRequest struct {
	CorrelationID string    `json:"correlation_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Continent     string    `json:"continent"`
	PublishedAt   time.Time `json:"published_at"`
}

type updateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ListArticles handles GET /articles
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	shard, err := queryShard(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	page, pageSize, err := queryPage(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	includeGlobal, err := queryBool(r, "include_global")
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	items, err := h.articles.List(r.Context(), shard, page, pageSize, includeGlobal)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []models.ArticleEntry{}
	}
	respondJSON(w, http.StatusOK, items)
}

// PublishArticle handles POST /articles
func (h *Handler) PublishArticle(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	shard, err := models.ParseShard(req.Continent)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	entry, err := h.articles.Publish(r.Context(), models.PublishedArticle{
		CorrelationID: req.CorrelationID,
		Title:         req.Title,
		Content:       req.Content,
		Continent:     shard,
		PublishedAt:   req.PublishedAt,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// GetArticle handles GET /articles/{id}
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	shard, err := queryShard(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	fallback, err := queryBool(r, "global_fallback")
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	entry, err := h.articles.Get(r.Context(), shard, id, fallback)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// UpdateArticle handles PUT /articles/{id}
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	shard, err := queryShard(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	entry, err := h.articles.Update(r.Context(), shard, id, req.Title, req.Content)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// DeleteArticle handles DELETE /articles/{id}
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	shard, err := queryShard(r)
	if err != nil {
		respondErrorWithCode(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := h.articles.Delete(r.Context(), shard, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
