package models

import "time"

// Comment is a persisted comment row.
type Comment struct {
	ID        int64      `json:"id" db:"id"`
	ArticleID int64      `json:"article_id" db:"article_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	UserName  string     `json:"user_name" db:"user_name"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// CommentEntry is one element of a cached per-article comment list.
type CommentEntry struct {
	ID        int64      `json:"id"`
	ArticleID int64      `json:"article_id"`
	UserID    string     `json:"user_id"`
	UserName  string     `json:"user_name"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Entry maps a row to its cache shape.
func (c *Comment) Entry() CommentEntry {
	return CommentEntry{
		ID:        c.ID,
		ArticleID: c.ArticleID,
		UserID:    c.UserID,
		UserName:  c.UserName,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt,
	}
}

// CommentCreate is the input for a new comment.
type CommentCreate struct {
	ArticleID int64  `json:"article_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Content   string `json:"content"`
	// Continent is the shard the article lives in; empty means global.
	Continent Shard `json:"continent,omitempty"`
}

// PageResult is one in-memory page of a larger list.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
