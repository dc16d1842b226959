package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

const articleColumns = `id, title, content, published_at, continent, correlation_id`

// SQLArticleRepository stores the articles of one shard.
type SQLArticleRepository struct {
	db    *sqlx.DB
	shard models.Shard
}

var _ ArticleRepository = (*SQLArticleRepository)(nil)

func NewArticleRepository(db *sqlx.DB, shard models.Shard) *SQLArticleRepository {
	return &SQLArticleRepository{db: db, shard: shard}
}

// Shard is the shard this repository serves.
func (r *SQLArticleRepository) Shard() models.Shard { return r.shard }

func (r *SQLArticleRepository) Close() error {
	return r.db.Close()
}

func (r *SQLArticleRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLArticleRepository) Get(ctx context.Context, id int64) (*models.Article, error) {
	q := r.db.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE id = ?`)
	var a models.Article
	err := instrumentQuery("article_get", func() error {
		return r.db.GetContext(ctx, &a, q, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return r.normalize(&a), nil
}

func (r *SQLArticleRepository) GetPaged(ctx context.Context, page, pageSize int) ([]*models.Article, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []*models.Article{}, nil
	}
	q := r.db.Rebind(`SELECT ` + articleColumns + ` FROM articles ORDER BY published_at DESC, id DESC LIMIT ? OFFSET ?`)
	var out []*models.Article
	err := instrumentQuery("article_list", func() error {
		return r.db.SelectContext(ctx, &out, q, pageSize, (page-1)*pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return r.normalizeAll(out), nil
}

func (r *SQLArticleRepository) GetRecentSince(ctx context.Context, since time.Time, limit int) ([]*models.Article, error) {
	if limit < 1 {
		return []*models.Article{}, nil
	}
	q := r.db.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE published_at >= ? ORDER BY published_at DESC, id DESC LIMIT ?`)
	var out []*models.Article
	err := instrumentQuery("article_recent", func() error {
		return r.db.SelectContext(ctx, &out, q, dbTime(since), limit)
	})
	if err != nil {
		return nil, fmt.Errorf("list recent articles: %w", err)
	}
	return r.normalizeAll(out), nil
}

func (r *SQLArticleRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*models.Article, error) {
	if correlationID == "" {
		return nil, ErrNotFound
	}
	q := r.db.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE correlation_id = ?`)
	var a models.Article
	err := instrumentQuery("article_get_by_correlation", func() error {
		return r.db.GetContext(ctx, &a, q, correlationID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article by correlation id %s: %w", correlationID, err)
	}
	return r.normalize(&a), nil
}

// Add inserts article and sets its ID. The row is stamped with this repository's shard.
func (r *SQLArticleRepository) Add(ctx context.Context, article *models.Article) error {
	if article.PublishedAt.IsZero() {
		article.PublishedAt = time.Now()
	}
	article.PublishedAt = dbTime(article.PublishedAt)
	article.Continent = r.shard

	q := r.db.Rebind(`INSERT INTO articles (title, content, published_at, continent, correlation_id)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := instrumentQuery("article_add", func() error {
		return r.db.QueryRowxContext(ctx, q,
			article.Title, article.Content, article.PublishedAt, string(article.Continent), article.CorrelationID,
		).Scan(&article.ID)
	})
	if err != nil {
		return fmt.Errorf("add article: %w", err)
	}
	return nil
}

func (r *SQLArticleRepository) Update(ctx context.Context, article *models.Article) error {
	article.PublishedAt = dbTime(article.PublishedAt)
	article.Continent = r.shard

	q := r.db.Rebind(`UPDATE articles SET title = ?, content = ?, published_at = ? WHERE id = ?`)
	var res sql.Result
	err := instrumentQuery("article_update", func() error {
		var err error
		res, err = r.db.ExecContext(ctx, q, article.Title, article.Content, article.PublishedAt, article.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("update article %d: %w", article.ID, err)
	}
	return requireAffected(res)
}

func (r *SQLArticleRepository) Delete(ctx context.Context, id int64) error {
	q := r.db.Rebind(`DELETE FROM articles WHERE id = ?`)
	var res sql.Result
	err := instrumentQuery("article_delete", func() error {
		var err error
		res, err = r.db.ExecContext(ctx, q, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	return requireAffected(res)
}

func (r *SQLArticleRepository) normalize(a *models.Article) *models.Article {
	a.PublishedAt = a.PublishedAt.UTC()
	a.Continent = r.shard
	return a
}

func (r *SQLArticleRepository) normalizeAll(list []*models.Article) []*models.Article {
	if list == nil {
		return []*models.Article{}
	}
	for _, a := range list {
		r.normalize(a)
	}
	return list
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
