package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/service"
)

type fakeArticles struct {
	lastShard    models.Shard
	lastFallback bool
	lastGlobal   bool
	lastPage     [2]int
	published    models.PublishedArticle
	err          error
}

func (f *fakeArticles) Get(_ context.Context, shard models.Shard, id int64, fallback bool) (*models.ArticleEntry, error) {
	f.lastShard, f.lastFallback = shard, fallback
	if f.err != nil {
		return nil, f.err
	}
	return &models.ArticleEntry{ID: id, Title: "t", Continent: shard}, nil
}

func (f *fakeArticles) List(_ context.Context, shard models.Shard, page, pageSize int, includeGlobal bool) ([]models.ArticleEntry, error) {
	f.lastShard, f.lastPage, f.lastGlobal = shard, [2]int{page, pageSize}, includeGlobal
	return nil, f.err
}

func (f *fakeArticles) Publish(_ context.Context, in models.PublishedArticle) (*models.ArticleEntry, error) {
	f.published = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.ArticleEntry{ID: 1, Title: in.Title, Continent: in.Continent}, nil
}

func (f *fakeArticles) Update(_ context.Context, shard models.Shard, id int64, title, content string) (*models.ArticleEntry, error) {
	f.lastShard = shard
	if f.err != nil {
		return nil, f.err
	}
	return &models.ArticleEntry{ID: id, Title: title, Content: content}, nil
}

func (f *fakeArticles) Delete(_ context.Context, shard models.Shard, _ int64) error {
	f.lastShard = shard
	return f.err
}

type fakeComments struct {
	created models.CommentCreate
	err     error
}

func (f *fakeComments) Create(_ context.Context, in models.CommentCreate) (*models.CommentEntry, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.CommentEntry{ID: 5, ArticleID: in.ArticleID, Content: in.Content}, nil
}

func (f *fakeComments) Get(_ context.Context, id int64) (*models.CommentEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CommentEntry{ID: id}, nil
}

func (f *fakeComments) ListByArticle(_ context.Context, articleID int64, page, pageSize int) (models.PageResult[models.CommentEntry], error) {
	return models.PageResult[models.CommentEntry]{
		Items: []models.CommentEntry{{ID: 1, ArticleID: articleID}}, Page: page, PageSize: pageSize, TotalCount: 1,
	}, f.err
}

func newTestRouter(a *fakeArticles, c *fakeComments) *mux.Router {
	router := mux.NewRouter()
	SetupRoutes(router.PathPrefix("/api/v1").Subrouter(), NewHandler(a, c))
	SetupOpsRoutes(router, NewHealthzHandler(nil, nil, func() map[string]string {
		return map[string]string{"prewarm": "idle"}
	}))
	return router
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetArticle(t *testing.T) {
	a := &fakeArticles{}
	router := newTestRouter(a, &fakeComments{})

	rec := do(router, http.MethodGet, "/api/v1/articles/42?continent=europe&global_fallback=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ArticleEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, models.Europe, a.lastShard)
	assert.True(t, a.lastFallback)
}

func TestGetArticle_Errors(t *testing.T) {
	a := &fakeArticles{err: service.ErrNotFound}
	router := newTestRouter(a, &fakeComments{})

	rec := do(router, http.MethodGet, "/api/v1/articles/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeNotFound, apiErr.Code)

	rec = do(router, http.MethodGet, "/api/v1/articles/42?continent=mars", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.err = errors.New("db down")
	rec = do(router, http.MethodGet, "/api/v1/articles/42", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestListArticles(t *testing.T) {
	a := &fakeArticles{}
	router := newTestRouter(a, &fakeComments{})

	rec := do(router, http.MethodGet, "/api/v1/articles?continent=Asia&page=2&page_size=5&include_global=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, models.Asia, a.lastShard)
	assert.Equal(t, [2]int{2, 5}, a.lastPage)
	assert.True(t, a.lastGlobal)

	rec = do(router, http.MethodGet, "/api/v1/articles?page=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishArticle(t *testing.T) {
	a := &fakeArticles{}
	router := newTestRouter(a, &fakeComments{})

	body := `{"title":"Hello","content":"World","continent":"northamerica","published_at":"2025-10-01T12:00:00Z"}`
	rec := do(router, http.MethodPost, "/api/v1/articles", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.NorthAmerica, a.published.Continent)
	assert.True(t, a.published.PublishedAt.Equal(time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)))

	rec = do(router, http.MethodPost, "/api/v1/articles", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.err = service.ErrInvalidInput
	rec = do(router, http.MethodPost, "/api/v1/articles", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeleteArticle(t *testing.T) {
	a := &fakeArticles{}
	router := newTestRouter(a, &fakeComments{})

	rec := do(router, http.MethodPut, "/api/v1/articles/3?continent=africa", `{"title":"n","content":"c"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Africa, a.lastShard)

	rec = do(router, http.MethodDelete, "/api/v1/articles/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.GlobalShard, a.lastShard)
}

func TestComments(t *testing.T) {
	c := &fakeComments{}
	router := newTestRouter(&fakeArticles{}, c)

	rec := do(router, http.MethodGet, "/api/v1/articles/8/comments?page=2&page_size=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PageResult[models.CommentEntry]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(8), page.Items[0].ArticleID)

	rec = do(router, http.MethodPost, "/api/v1/articles/8/comments?continent=europe",
		`{"user_id":"u1","user_name":"Ann","content":"Nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(8), c.created.ArticleID)
	assert.Equal(t, models.Europe, c.created.Continent)

	rec = do(router, http.MethodGet, "/api/v1/comments/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.err = service.ErrNotFound
	rec = do(router, http.MethodPost, "/api/v1/articles/8/comments", `{"user_id":"u1","user_name":"Ann","content":"Nice"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&fakeArticles{}, &fakeComments{})

	rec := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","prewarm":"idle"}`, rec.Body.String())

	rec = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	rec := httptest.NewRecorder()
	NewHealthzHandler(map[string]Check{"store": ok}, map[string]Check{"cache": failing}, nil).
		Ready(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)

	rec = httptest.NewRecorder()
	NewHealthzHandler(map[string]Check{"store": failing}, nil, nil).
		Ready(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
