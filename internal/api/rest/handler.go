package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

// ArticleService is the article API used by the handlers.
type ArticleService interface {
	Get(ctx context.Context, shard models.Shard, id int64, globalFallback bool) (*models.ArticleEntry, error)
	List(ctx context.Context, shard models.Shard, page, pageSize int, includeGlobal bool) ([]models.ArticleEntry, error)
	Publish(ctx context.Context, in models.PublishedArticle) (*models.ArticleEntry, error)
	Update(ctx context.Context, shard models.Shard, id int64, title, content string) (*models.ArticleEntry, error)
	Delete(ctx context.Context, shard models.Shard, id int64) error
}

// CommentService is the comment API used by the handlers.
type CommentService interface {
	Create(ctx context.Context, in models.CommentCreate) (*models.CommentEntry, error)
	Get(ctx context.Context, id int64) (*models.CommentEntry, error)
	ListByArticle(ctx context.Context, articleID int64, page, pageSize int) (models.PageResult[models.CommentEntry], error)
}

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Handler manages HTTP request handlers
type Handler struct {
	articles ArticleService
	comments CommentService
}

// NewHandler creates a new HTTP handler
func NewHandler(articles ArticleService, comments CommentService) *Handler {
	return &Handler{articles: articles, comments: comments}
}

// SetupRoutes configures API routes under router, which is expected to be the /api/v1 subrouter.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/articles", h.ListArticles).Methods("GET")
	router.HandleFunc("/articles", h.PublishArticle).Methods("POST")
	router.HandleFunc("/articles/{id:[0-9]+}", h.GetArticle).Methods("GET")
	router.HandleFunc("/articles/{id:[0-9]+}", h.UpdateArticle).Methods("PUT")
	router.HandleFunc("/articles/{id:[0-9]+}", h.DeleteArticle).Methods("DELETE")

	router.HandleFunc("/articles/{id:[0-9]+}/comments", h.ListComments).Methods("GET")
	router.HandleFunc("/articles/{id:[0-9]+}/comments", h.CreateComment).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}", h.GetComment).Methods("GET")
}

// SetupOpsRoutes registers /health, /healthz/* and /metrics on the root router.
func SetupOpsRoutes(router *mux.Router, hz *HealthzHandler) {
	router.HandleFunc("/health", hz.Live).Methods("GET")
	router.HandleFunc("/healthz/live", hz.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", hz.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func queryShard(r *http.Request) (models.Shard, error) {
	return models.ParseShard(r.URL.Query().Get("continent"))
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, v)
	}
	return b, nil
}

func queryPage(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := queryInt(r, "page_size", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}
