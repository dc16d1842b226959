package models

import "time"

// Article is a persisted article row. Every shard has its own table.
type Article struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Content       string    `json:"content" db:"content"`
	PublishedAt   time.Time `json:"published_at" db:"published_at"`
	Continent     Shard     `json:"continent" db:"continent"`
	CorrelationID string    `json:"correlation_id" db:"correlation_id"`
}

// ArticleEntry is the cached, read-side snapshot of an article.
type ArticleEntry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	Continent   Shard     `json:"continent,omitempty"`
}

// Entry maps a row to its cache shape.
func (a *Article) Entry() ArticleEntry {
	return ArticleEntry{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		PublishedAt: a.PublishedAt.UTC(),
		Continent:   a.Continent,
	}
}

// PublishedArticle is an article announced by the publisher, keyed by its correlation id.
type PublishedArticle struct {
	CorrelationID string    `json:"correlation_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Continent     Shard     `json:"continent"`
	PublishedAt   time.Time `json:"published_at"`
}
