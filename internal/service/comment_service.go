package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/tracing"
	"github.com/happyheadlines/headlines-backend/internal/repository"
)

// ArticleChecker confirms that a comment targets an existing article.
type ArticleChecker interface {
	Exists(ctx context.Context, shard models.Shard, id int64) (bool, error)
}

// CommentService reads whole comment lists through the comment cache and pages them in memory.
type CommentService struct {
	repo      repository.CommentRepository
	cache     cache.CommentCache
	articles  ArticleChecker
	profanity ProfanityFilter
	log       *slog.Logger
	now       func() time.Time
}

// NewCommentService creates a new comment service. articles may be nil to skip the
// existence check and profanity may be nil to store content as given.
func NewCommentService(repo repository.CommentRepository, c cache.CommentCache, articles ArticleChecker, profanity ProfanityFilter, log *slog.Logger) *CommentService {
	return &CommentService{repo: repo, cache: c, articles: articles, profanity: profanity, log: log, now: time.Now}
}

func (s *CommentService) Create(ctx context.Context, in models.CommentCreate) (*models.CommentEntry, error) {
	if in.ArticleID <= 0 {
		return nil, invalid("article_id must be greater than zero")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, invalid("user_id is required")
	}
	if strings.TrimSpace(in.UserName) == "" {
		return nil, invalid("user_name is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, invalid("content is required")
	}
	if s.articles != nil {
		ok, err := s.articles.Exists(ctx, in.Continent, in.ArticleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound
		}
	}

	content := in.Content
	if s.profanity != nil {
		sanitized, found, err := s.profanity.Filter(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("filter comment: %w", err)
		}
		if found {
			s.log.Info("Profanity masked in comment", "article_id", in.ArticleID)
		}
		content = sanitized
	}

	c := &models.Comment{
		ArticleID: in.ArticleID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	entry := c.Entry()
	if _, err := s.cache.AppendIfPresent(ctx, in.ArticleID, entry); err != nil {
		s.log.Warn("Comment cache append failed", "article_id", in.ArticleID, "error", err)
	}
	return &entry, nil
}

func (s *CommentService) Get(ctx context.Context, id int64) (*models.CommentEntry, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry := c.Entry()
	return &entry, nil
}

// ListByArticle returns one page of an article's comments, newest first.
// page is at least 1 and pageSize is clamped to [1,100].
func (s *CommentService) ListByArticle(ctx context.Context, articleID int64, page, pageSize int) (models.PageResult[models.CommentEntry], error) {
	page, pageSize = clampPage(page, pageSize)
	ctx, span := tracing.StartSpan(ctx, "comment.list", tracing.ArticleIDKey.Int64(articleID))

	all, err := s.all(ctx, articleID)
	tracing.End(span, err)
	if err != nil {
		return models.PageResult[models.CommentEntry]{}, err
	}

	items := []models.CommentEntry{}
	if start := (page - 1) * pageSize; start < len(all) {
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}
		items = all[start:end]
	}
	return models.PageResult[models.CommentEntry]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(all),
	}, nil
}

func (s *CommentService) all(ctx context.Context, articleID int64) ([]models.CommentEntry, error) {
	cached, err := s.cache.TryGetAll(ctx, articleID)
	if err != nil {
		s.log.Warn("Comment cache read failed, using store", "article_id", articleID, "error", err)
	} else if cached.Hit() {
		return cached.Value, nil
	}

	rows, err := s.repo.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	all := make([]models.CommentEntry, len(rows))
	for i, c := range rows {
		all[i] = c.Entry()
	}
	if _, err := s.cache.StoreAll(ctx, articleID, all); err != nil {
		s.log.Warn("Comment cache write failed", "article_id", articleID, "error", err)
	}
	return all, nil
}
