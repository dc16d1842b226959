package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/logger"
	"github.com/happyheadlines/headlines-backend/internal/repository"
)

type fixture struct {
	mr       *miniredis.Miniredis
	shards   *repository.Shards
	comments *repository.SQLCommentRepository
	articles *cache.RedisArticleCache
	lists    *cache.RedisCommentCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	gw := cache.NewGateway(cache.NewRedisDialer(&redis.Options{Addr: mr.Addr()}), time.Second, logger.Discard())
	t.Cleanup(func() { _ = gw.Close() })

	shards, err := repository.OpenShards(repository.DriverSQLite, func(_ models.Shard) string { return ":memory:" })
	require.NoError(t, err)
	t.Cleanup(func() { _ = shards.Close() })

	db, err := repository.OpenStore(repository.DriverSQLite, ":memory:", repository.CommentStore)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		mr:       mr,
		shards:   shards,
		comments: repository.NewCommentRepository(db),
		articles: cache.NewRedisArticleCache(gw, cache.ArticleOptions{}, logger.Discard()),
		lists:    cache.NewRedisCommentCache(gw, cache.CommentOptions{}, logger.Discard()),
	}
}

func (f *fixture) seed(t *testing.T, shard models.Shard, title string, publishedAt time.Time) *models.Article {
	t.Helper()
	repo, err := f.shards.For(shard)
	require.NoError(t, err)
	a := &models.Article{Title: title, Content: title + " body", PublishedAt: publishedAt}
	require.NoError(t, repo.Add(context.Background(), a))
	return a
}

func (f *fixture) articleService() *ArticleService {
	return NewArticleService(f.shards, f.articles, logger.Discard())
}
