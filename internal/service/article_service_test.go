package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/logger"
)

func TestArticleService_GetReadsThrough(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	a := f.seed(t, models.Europe, "Rivers cleaner", time.Now().Add(-time.Hour))

	assert.False(t, f.mr.Exists(cache.ArticleKey(models.Europe, a.ID)))
	got, err := svc.Get(ctx, models.Europe, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Rivers cleaner", got.Title)
	assert.True(t, f.mr.Exists(cache.ArticleKey(models.Europe, a.ID)), "store hit is written back")

	// Served from the cache even when the store row is gone.
	repo, _ := f.shards.For(models.Europe)
	require.NoError(t, repo.Delete(ctx, a.ID))
	again, err := svc.Get(ctx, models.Europe, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
}

func TestArticleService_GetGlobalFallback(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	a := f.seed(t, models.GlobalShard, "Worldwide", time.Now().Add(-time.Hour))

	_, err := svc.Get(ctx, models.Asia, a.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, models.Asia, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Worldwide", got.Title)
	assert.True(t, f.mr.Exists(cache.ArticleKey(models.GlobalShard, a.ID)))
	assert.False(t, f.mr.Exists(cache.ArticleKey(models.Asia, a.ID)))
}

func TestArticleService_ListFallsBackToStoreThenUsesIndex(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		f.seed(t, models.Africa, "a", now.Add(-time.Duration(i+1)*time.Hour))
	}

	first, err := svc.List(ctx, models.Africa, 1, 3, false)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].PublishedAt.After(first[i-1].PublishedAt))
	}

	members, err := f.mr.ZMembers(cache.ArticleRecentKey(models.Africa))
	require.NoError(t, err)
	assert.Len(t, members, 3, "the store page is written back")

	cached, err := svc.List(ctx, models.Africa, 1, 3, false)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
}

func TestArticleService_ListMergesGlobal(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	now := time.Now()
	f.seed(t, models.Europe, "eu-old", now.Add(-3*time.Hour))
	f.seed(t, models.Europe, "eu-new", now.Add(-1*time.Hour))
	f.seed(t, models.GlobalShard, "global-mid", now.Add(-2*time.Hour))
	f.seed(t, models.GlobalShard, "global-oldest", now.Add(-4*time.Hour))

	page, err := svc.List(ctx, models.Europe, 1, 3, true)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"eu-new", "global-mid", "eu-old"}, []string{page[0].Title, page[1].Title, page[2].Title})

	only, err := svc.List(ctx, models.Europe, 1, 3, false)
	require.NoError(t, err)
	assert.Len(t, only, 2)
}

func TestArticleService_PublishIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	in := models.PublishedArticle{
		CorrelationID: uuid.NewString(),
		Title:         "Solar record",
		Content:       "More sun",
		Continent:     models.Australia,
		PublishedAt:   time.Now().Add(-time.Minute),
	}

	first, err := svc.Publish(ctx, in)
	require.NoError(t, err)
	second, err := svc.Publish(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.Australia, first.Continent)
	assert.True(t, f.mr.Exists(cache.ArticleKey(models.Australia, first.ID)))

	repo, _ := f.shards.For(models.Australia)
	rows, err := repo.GetPaged(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestArticleService_PublishValidates(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()

	_, err := svc.Publish(context.Background(), models.PublishedArticle{Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Publish(context.Background(), models.PublishedArticle{Title: "x", Content: "y", CorrelationID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.Publish(context.Background(), models.PublishedArticle{Title: "x", Content: "y"})
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
}

func TestArticleService_UpdateAndDeleteInvalidate(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	a := f.seed(t, models.SouthAmerica, "Before", time.Now().Add(-time.Hour))

	_, err := svc.Get(ctx, models.SouthAmerica, a.ID, false)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.ArticleKey(models.SouthAmerica, a.ID)))

	updated, err := svc.Update(ctx, models.SouthAmerica, a.ID, "After", "new body")
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.False(t, f.mr.Exists(cache.ArticleKey(models.SouthAmerica, a.ID)))

	got, err := svc.Get(ctx, models.SouthAmerica, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)

	require.NoError(t, svc.Delete(ctx, models.SouthAmerica, a.ID))
	assert.False(t, f.mr.Exists(cache.ArticleKey(models.SouthAmerica, a.ID)))
	_, err = svc.Get(ctx, models.SouthAmerica, a.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, models.SouthAmerica, a.ID), ErrNotFound)
	_, err = svc.Update(ctx, models.SouthAmerica, a.ID, "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArticleService_CacheDownFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	svc := f.articleService()
	ctx := context.Background()
	a := f.seed(t, models.Antarctica, "Penguins", time.Now().Add(-time.Hour))
	f.mr.Close()

	got, err := svc.Get(ctx, models.Antarctica, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Penguins", got.Title)

	page, err := svc.List(ctx, models.Antarctica, 1, 10, false)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestArticleService_NoOpCache(t *testing.T) {
	f := newFixture(t)
	svc := NewArticleService(f.shards, cache.NoOpArticleCache{}, logger.Discard())
	ctx := context.Background()
	a := f.seed(t, models.Asia, "Plain", time.Now())

	got, err := svc.Get(ctx, models.Asia, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Plain", got.Title)
	assert.Empty(t, f.mr.Keys())
}
