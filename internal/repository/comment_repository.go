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

const commentColumns = `id, article_id, user_id, user_name, content, created_at, updated_at`

// SQLCommentRepository stores comments for all articles in one database.
type SQLCommentRepository struct {
	db *sqlx.DB
}

var _ CommentRepository = (*SQLCommentRepository)(nil)

func NewCommentRepository(db *sqlx.DB) *SQLCommentRepository {
	return &SQLCommentRepository{db: db}
}

func (r *SQLCommentRepository) Close() error {
	return r.db.Close()
}

func (r *SQLCommentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	comment.CreatedAt = dbTime(comment.CreatedAt)

	q := r.db.Rebind(`INSERT INTO comments (article_id, user_id, user_name, content, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := instrumentQuery("comment_create", func() error {
		return r.db.QueryRowxContext(ctx, q,
			comment.ArticleID, comment.UserID, comment.UserName, comment.Content, comment.CreatedAt,
		).Scan(&comment.ID)
	})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *SQLCommentRepository) Get(ctx context.Context, id int64) (*models.Comment, error) {
	q := r.db.Rebind(`SELECT ` + commentColumns + ` FROM comments WHERE id = ?`)
	var c models.Comment
	err := instrumentQuery("comment_get", func() error {
		return r.db.GetContext(ctx, &c, q, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (r *SQLCommentRepository) ListByArticle(ctx context.Context, articleID int64) ([]*models.Comment, error) {
	q := r.db.Rebind(`SELECT ` + commentColumns + ` FROM comments WHERE article_id = ? ORDER BY created_at DESC, id DESC`)
	var out []*models.Comment
	err := instrumentQuery("comment_list", func() error {
		return r.db.SelectContext(ctx, &out, q, articleID)
	})
	if err != nil {
		return nil, fmt.Errorf("list comments of article %d: %w", articleID, err)
	}
	if out == nil {
		out = []*models.Comment{}
	}
	for _, c := range out {
		c.CreatedAt = c.CreatedAt.UTC()
	}
	return out, nil
}
