package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/tracing"
	"github.com/happyheadlines/headlines-backend/internal/repository"
)

const maxPageSize = 100

// ArticleService reads articles through the shard cache and writes them store first.
type ArticleService struct {
	shards ShardResolver
	cache  cache.ArticleCache
	log    *slog.Logger
	now    func() time.Time
}

// NewArticleService creates a new article service
func NewArticleService(shards ShardResolver, c cache.ArticleCache, log *slog.Logger) *ArticleService {
	return &ArticleService{shards: shards, cache: c, log: log, now: time.Now}
}

// Get returns an article of shard. With globalFallback, an article missing from a
// regional shard is looked up in the global shard.
func (s *ArticleService) Get(ctx context.Context, shard models.Shard, id int64, globalFallback bool) (*models.ArticleEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "article.get", tracing.ShardKey.String(shard.Name()), tracing.ArticleIDKey.Int64(id))
	entry, err := s.get(ctx, shard, id)
	if errors.Is(err, ErrNotFound) && globalFallback && !shard.IsGlobal() {
		entry, err = s.get(ctx, models.GlobalShard, id)
	}
	tracing.End(span, ignoreNotFound(err))
	return entry, err
}

func (s *ArticleService) get(ctx context.Context, shard models.Shard, id int64) (*models.ArticleEntry, error) {
	cached, err := s.cache.TryGet(ctx, shard, id)
	if err != nil {
		s.log.Warn("Article cache read failed, using store", "shard", shard.Name(), "id", id, "error", err)
	} else if cached.Hit() {
		return &cached.Value, nil
	}

	repo, err := s.shards.For(shard)
	if err != nil {
		return nil, err
	}
	a, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry := a.Entry()
	s.writeBack(ctx, shard, entry)
	return &entry, nil
}

// List returns one page of a shard's articles, newest first. The recency index
// serves the page when it has entries for it; otherwise the store does.
// With includeGlobal, the same page of the global shard is merged in and the
// result is truncated to pageSize.
func (s *ArticleService) List(ctx context.Context, shard models.Shard, page, pageSize int, includeGlobal bool) ([]models.ArticleEntry, error) {
	page, pageSize = clampPage(page, pageSize)
	ctx, span := tracing.StartSpan(ctx, "article.list", tracing.ShardKey.String(shard.Name()))

	items, err := s.page(ctx, shard, page, pageSize)
	if err != nil || shard.IsGlobal() || !includeGlobal {
		tracing.End(span, err)
		return items, err
	}

	global, err := s.page(ctx, models.GlobalShard, page, pageSize)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}
	merged := append(items, global...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > pageSize {
		merged = merged[:pageSize]
	}
	tracing.End(span, nil)
	return merged, nil
}

func (s *ArticleService) page(ctx context.Context, shard models.Shard, page, pageSize int) ([]models.ArticleEntry, error) {
	skip := (page - 1) * pageSize
	cached, err := s.cache.GetRecentPage(ctx, shard, skip, pageSize)
	if err != nil {
		s.log.Warn("Article cache page read failed, using store", "shard", shard.Name(), "error", err)
	} else if len(cached) > 0 {
		return cached, nil
	}

	repo, err := s.shards.For(shard)
	if err != nil {
		return nil, err
	}
	rows, err := repo.GetPaged(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]models.ArticleEntry, len(rows))
	for i, a := range rows {
		out[i] = a.Entry()
		s.writeBack(ctx, shard, out[i])
	}
	return out, nil
}

// Publish persists an announced article once per correlation id. A repeated
// announcement returns the stored article and refreshes its cache entry.
func (s *ArticleService) Publish(ctx context.Context, in models.PublishedArticle) (*models.ArticleEntry, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, invalid("content is required")
	}
	if in.CorrelationID == "" {
		in.CorrelationID = uuid.NewString()
	} else if _, err := uuid.Parse(in.CorrelationID); err != nil {
		return nil, invalid("correlation_id must be a UUID")
	}
	if in.PublishedAt.IsZero() {
		in.PublishedAt = s.now()
	}

	repo, err := s.shards.For(in.Continent)
	if err != nil {
		return nil, err
	}
	if existing, err := repo.GetByCorrelationID(ctx, in.CorrelationID); err == nil {
		s.log.Info("Article already published", "correlation_id", in.CorrelationID, "id", existing.ID)
		entry := existing.Entry()
		s.writeBack(ctx, in.Continent, entry)
		return &entry, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	a := &models.Article{
		Title:         in.Title,
		Content:       in.Content,
		PublishedAt:   in.PublishedAt,
		CorrelationID: in.CorrelationID,
	}
	if err := repo.Add(ctx, a); err != nil {
		// A concurrent publish of the same correlation id may have won the insert.
		raced, getErr := repo.GetByCorrelationID(ctx, in.CorrelationID)
		if getErr != nil {
			return nil, fmt.Errorf("publish article: %w", err)
		}
		s.log.Warn("Concurrent publish of the same article", "correlation_id", in.CorrelationID)
		a = raced
	}

	entry := a.Entry()
	s.writeBack(ctx, in.Continent, entry)
	s.log.Info("Article published", "correlation_id", in.CorrelationID, "id", a.ID, "shard", in.Continent.Name())
	return &entry, nil
}

// Update changes title and content in the store, then invalidates the cached entry.
func (s *ArticleService) Update(ctx context.Context, shard models.Shard, id int64, title, content string) (*models.ArticleEntry, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, invalid("title and content are required")
	}
	repo, err := s.shards.For(shard)
	if err != nil {
		return nil, err
	}
	a, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Title = title
	a.Content = content
	if err := repo.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, shard, id)
	entry := a.Entry()
	return &entry, nil
}

// Delete removes the article from the store, then invalidates the cached entry.
func (s *ArticleService) Delete(ctx context.Context, shard models.Shard, id int64) error {
	repo, err := s.shards.For(shard)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, shard, id)
	return nil
}

// Exists reports whether the article exists in shard or the global shard.
func (s *ArticleService) Exists(ctx context.Context, shard models.Shard, id int64) (bool, error) {
	_, err := s.Get(ctx, shard, id, true)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *ArticleService) writeBack(ctx context.Context, shard models.Shard, entry models.ArticleEntry) {
	if _, err := s.cache.Upsert(ctx, shard, entry); err != nil {
		s.log.Warn("Article cache write failed", "shard", shard.Name(), "id", entry.ID, "error", err)
	}
}

func (s *ArticleService) invalidate(ctx context.Context, shard models.Shard, id int64) {
	if err := s.cache.Invalidate(ctx, shard, id); err != nil {
		s.log.Warn("Article cache invalidate failed", "shard", shard.Name(), "id", id, "error", err)
	}
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
