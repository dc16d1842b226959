package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

// Shards resolves the article repository of each shard.
type Shards struct {
	repos map[models.Shard]ArticleRepository
}

// NewShards wraps prebuilt repositories, keyed by shard.
func NewShards(repos map[models.Shard]ArticleRepository) *Shards {
	return &Shards{repos: repos}
}

// OpenShards opens and migrates one article store per shard.
// dsnFor maps a shard to its DSN.
func OpenShards(driver string, dsnFor func(models.Shard) string) (*Shards, error) {
	s := &Shards{repos: make(map[models.Shard]ArticleRepository)}
	for _, shard := range models.AllShards() {
		db, err := OpenStore(driver, dsnFor(shard), ArticleStore)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open %s article store: %w", shard.Name(), err)
		}
		s.repos[shard] = NewArticleRepository(db, shard)
	}
	return s, nil
}

// For returns the repository of shard.
func (s *Shards) For(shard models.Shard) (ArticleRepository, error) {
	repo, ok := s.repos[shard]
	if !ok {
		return nil, fmt.Errorf("no article store for shard %s", shard.Name())
	}
	return repo, nil
}

// Close closes every repository that owns a connection.
func (s *Shards) Close() error {
	var errs []error
	for _, repo := range s.repos {
		if c, ok := repo.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Ping checks every store that supports it.
func (s *Shards) Ping(ctx context.Context) error {
	for shard, repo := range s.repos {
		p, ok := repo.(interface{ Ping(context.Context) error })
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s article store: %w", shard.Name(), err)
		}
	}
	return nil
}
