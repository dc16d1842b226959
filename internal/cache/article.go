package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/metrics"
)

const (
	DefaultArticleTTL        = 15 * 24 * time.Hour
	DefaultArticleStaleAfter = 14 * 24 * time.Hour
	DefaultPrewarmLimit      = 4000
)

// ArticleCache caches articles per shard together with a recency index.
type ArticleCache interface {
	TryGet(ctx context.Context, shard models.Shard, id int64) (Lookup[models.ArticleEntry], error)
	// GetRecentPage returns up to take entries, newest first, starting at rank skip.
	// Entries that vanished from the cache are dropped, so the page can be short.
	GetRecentPage(ctx context.Context, shard models.Shard, skip, take int) ([]models.ArticleEntry, error)
	Upsert(ctx context.Context, shard models.Shard, entry models.ArticleEntry) (Status, error)
	Invalidate(ctx context.Context, shard models.Shard, id int64) error
	// BulkReplace writes the fresh items and prunes everything older than the staleness cutoff.
	BulkReplace(ctx context.Context, shard models.Shard, items []models.ArticleEntry) (int, error)
}

// ArticleOptions tunes RedisArticleCache. Zero fields take the defaults.
type ArticleOptions struct {
	// TTL of an entry. Longer than StaleAfter so borderline items stay servable.
	TTL time.Duration
	// StaleAfter is the maximum age of content the cache accepts and lists.
	StaleAfter time.Duration
	Now        func() time.Time
}

func (o ArticleOptions) withDefaults() ArticleOptions {
	if o.TTL <= 0 {
		o.TTL = DefaultArticleTTL
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultArticleStaleAfter
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RedisArticleCache is the Redis-backed ArticleCache.
type RedisArticleCache struct {
	gw   *Gateway
	opts ArticleOptions
	log  *slog.Logger
}

var _ ArticleCache = (*RedisArticleCache)(nil)

func NewRedisArticleCache(gw *Gateway, opts ArticleOptions, log *slog.Logger) *RedisArticleCache {
	return &RedisArticleCache{gw: gw, opts: opts.withDefaults(), log: log}
}

// Cutoff is the oldest publish time the cache currently accepts.
func (c *RedisArticleCache) Cutoff() time.Time {
	return c.opts.Now().Add(-c.opts.StaleAfter)
}

func (c *RedisArticleCache) TryGet(ctx context.Context, shard models.Shard, id int64) (Lookup[models.ArticleEntry], error) {
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return missOf[models.ArticleEntry](), fmt.Errorf("article cache get: %w", err)
	}

	key := ArticleKey(shard, id)
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ArticleCacheMissesTotal.WithLabelValues(shard.Name()).Inc()
		return missOf[models.ArticleEntry](), nil
	}
	if err != nil {
		c.gw.Observe(rdb, err)
		return missOf[models.ArticleEntry](), fmt.Errorf("article cache get %s: %w", key, err)
	}

	var entry models.ArticleEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Warn("Failed to deserialize cached article", "id", id, "shard", shard.Name(), "error", err)
		c.discard(ctx, rdb, key)
		metrics.ArticleCacheMissesTotal.WithLabelValues(shard.Name()).Inc()
		return missOf[models.ArticleEntry](), nil
	}
	metrics.ArticleCacheHitsTotal.WithLabelValues(shard.Name()).Inc()
	return hitOf(entry), nil
}

func (c *RedisArticleCache) GetRecentPage(ctx context.Context, shard models.Shard, skip, take int) ([]models.ArticleEntry, error) {
	if skip < 0 || take <= 0 {
		return nil, nil
	}
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("article cache recent: %w", err)
	}

	ids, err := rdb.ZRevRange(ctx, ArticleRecentKey(shard), int64(skip), int64(skip+take-1)).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return nil, fmt.Errorf("article cache recent index %s: %w", shard.Name(), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = articleKey(shard, id)
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return nil, fmt.Errorf("article cache recent entries %s: %w", shard.Name(), err)
	}

	out := make([]models.ArticleEntry, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.ArticleEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			c.log.Debug("Skipping undecodable cached article", "key", keys[i], "error", err)
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *RedisArticleCache) Upsert(ctx context.Context, shard models.Shard, entry models.ArticleEntry) (Status, error) {
	if entry.PublishedAt.Before(c.Cutoff()) {
		return StatusRefused, nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return StatusRefused, fmt.Errorf("article cache encode %d: %w", entry.ID, err)
	}

	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return StatusMiss, fmt.Errorf("article cache upsert: %w", err)
	}
	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		c.stage(ctx, p, shard, entry, payload)
		return nil
	})
	if err != nil {
		c.gw.Observe(rdb, err)
		return StatusMiss, fmt.Errorf("article cache upsert %d: %w", entry.ID, err)
	}
	return StatusStored, nil
}

func (c *RedisArticleCache) Invalidate(ctx context.Context, shard models.Shard, id int64) error {
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("article cache invalidate: %w", err)
	}
	if err := rdb.Del(ctx, ArticleKey(shard, id)).Err(); err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("article cache invalidate %d: %w", id, err)
	}
	return nil
}

func (c *RedisArticleCache) BulkReplace(ctx context.Context, shard models.Shard, items []models.ArticleEntry) (int, error) {
	cutoff := c.Cutoff()
	below := "(" + strconv.FormatInt(cutoff.Unix(), 10)
	recentKey := ArticleRecentKey(shard)

	fresh := make([]models.ArticleEntry, 0, len(items))
	payloads := make([][]byte, 0, len(items))
	var stale []models.ArticleEntry
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			stale = append(stale, item)
			continue
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return 0, fmt.Errorf("article cache encode %d: %w", item.ID, err)
		}
		fresh = append(fresh, item)
		payloads = append(payloads, payload)
	}

	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("article cache bulk replace: %w", err)
	}
	expired, err := rdb.ZRangeByScore(ctx, recentKey, &redis.ZRangeBy{Min: "-inf", Max: below}).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return 0, fmt.Errorf("article cache bulk replace %s: %w", shard.Name(), err)
	}

	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range expired {
			p.Del(ctx, articleKey(shard, m))
		}
		for _, item := range stale {
			p.Del(ctx, ArticleKey(shard, item.ID))
			p.ZRem(ctx, recentKey, member(item.ID))
		}
		for i, item := range fresh {
			c.stage(ctx, p, shard, item, payloads[i])
		}
		p.ZRemRangeByScore(ctx, recentKey, "-inf", below)
		return nil
	})
	if err != nil {
		c.gw.Observe(rdb, err)
		return 0, fmt.Errorf("article cache bulk replace %s: %w", shard.Name(), err)
	}

	c.log.Debug("Article cache shard replaced",
		"shard", shard.Name(), "written", len(fresh), "stale", len(stale), "pruned", len(expired))
	return len(fresh), nil
}

func (c *RedisArticleCache) stage(ctx context.Context, p redis.Pipeliner, shard models.Shard, entry models.ArticleEntry, payload []byte) {
	p.Set(ctx, ArticleKey(shard, entry.ID), payload, c.opts.TTL)
	p.ZAdd(ctx, ArticleRecentKey(shard), &redis.Z{
		Score:  float64(entry.PublishedAt.Unix()),
		Member: member(entry.ID),
	})
}

func (c *RedisArticleCache) discard(ctx context.Context, rdb redis.UniversalClient, key string) {
	if err := rdb.Del(ctx, key).Err(); err != nil {
		c.gw.Observe(rdb, err)
		c.log.Debug("Failed to delete corrupted cache entry", "key", key, "error", err)
	}
}

// NoOpArticleCache is used when the article cache is disabled: every read misses, every write is dropped.
type NoOpArticleCache struct{}

var _ ArticleCache = NoOpArticleCache{}

func (NoOpArticleCache) TryGet(context.Context, models.Shard, int64) (Lookup[models.ArticleEntry], error) {
	return Lookup[models.ArticleEntry]{Status: StatusBypassed}, nil
}

func (NoOpArticleCache) GetRecentPage(context.Context, models.Shard, int, int) ([]models.ArticleEntry, error) {
	return nil, nil
}

func (NoOpArticleCache) Upsert(context.Context, models.Shard, models.ArticleEntry) (Status, error) {
	return StatusBypassed, nil
}

func (NoOpArticleCache) Invalidate(context.Context, models.Shard, int64) error { return nil }

func (NoOpArticleCache) BulkReplace(context.Context, models.Shard, []models.ArticleEntry) (int, error) {
	return 0, nil
}
