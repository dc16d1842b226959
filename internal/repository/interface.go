package repository

import (
	"context"
	"errors"
	"time"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ArticleRepository defines article data access for one shard store
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*models.Article, error)
	// GetPaged returns one page of articles, newest first. page starts at 1.
	GetPaged(ctx context.Context, page, pageSize int) ([]*models.Article, error)
	// GetRecentSince returns up to limit articles published at or after since, newest first.
	GetRecentSince(ctx context.Context, since time.Time, limit int) ([]*models.Article, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*models.Article, error)
	Add(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
}

// CommentRepository defines comment data access methods
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Get(ctx context.Context, id int64) (*models.Comment, error)
	// ListByArticle returns every comment of an article, newest first.
	ListByArticle(ctx context.Context, articleID int64) ([]*models.Comment, error)
}
