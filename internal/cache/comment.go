package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/metrics"
)

const (
	DefaultCommentTTL            = 2 * time.Hour
	DefaultCommentMaxArticles    = 30
	DefaultMaxCommentsPerArticle = 5000
)

// CommentCache caches the whole comment list of an article, newest first,
// and bounds the number of cached articles with an LRU touch index.
type CommentCache interface {
	TryGetAll(ctx context.Context, articleID int64) (Lookup[[]models.CommentEntry], error)
	StoreAll(ctx context.Context, articleID int64, list []models.CommentEntry) (Status, error)
	// AppendIfPresent prepends comment to an already cached list; cold articles are left alone.
	AppendIfPresent(ctx context.Context, articleID int64, comment models.CommentEntry) (Status, error)
}

// CommentOptions tunes RedisCommentCache. Zero fields take the defaults.
type CommentOptions struct {
	TTL                   time.Duration
	MaxArticles           int
	MaxCommentsPerArticle int
}

func (o CommentOptions) withDefaults() CommentOptions {
	if o.TTL <= 0 {
		o.TTL = DefaultCommentTTL
	}
	if o.MaxArticles <= 0 {
		o.MaxArticles = DefaultCommentMaxArticles
	}
	if o.MaxCommentsPerArticle <= 0 {
		o.MaxCommentsPerArticle = DefaultMaxCommentsPerArticle
	}
	return o
}

// RedisCommentCache is the Redis-backed CommentCache.
type RedisCommentCache struct {
	gw   *Gateway
	opts CommentOptions
	log  *slog.Logger
}

var _ CommentCache = (*RedisCommentCache)(nil)

func NewRedisCommentCache(gw *Gateway, opts CommentOptions, log *slog.Logger) *RedisCommentCache {
	return &RedisCommentCache{gw: gw, opts: opts.withDefaults(), log: log}
}

func (c *RedisCommentCache) TryGetAll(ctx context.Context, articleID int64) (Lookup[[]models.CommentEntry], error) {
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return missOf[[]models.CommentEntry](), fmt.Errorf("comment cache get: %w", err)
	}

	key := CommentKey(articleID)
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CommentCacheMissesTotal.Inc()
		return missOf[[]models.CommentEntry](), nil
	}
	if err != nil {
		c.gw.Observe(rdb, err)
		return missOf[[]models.CommentEntry](), fmt.Errorf("comment cache get %s: %w", key, err)
	}

	list, ok := c.decode(ctx, rdb, articleID, raw)
	if !ok {
		metrics.CommentCacheMissesTotal.Inc()
		return missOf[[]models.CommentEntry](), nil
	}
	metrics.CommentCacheHitsTotal.Inc()
	if err := c.touch(ctx, rdb, articleID); err != nil {
		return hitOf(list), err
	}
	return hitOf(list), nil
}

func (c *RedisCommentCache) StoreAll(ctx context.Context, articleID int64, list []models.CommentEntry) (Status, error) {
	if len(list) > c.opts.MaxCommentsPerArticle {
		metrics.CommentCacheSkipLargeTotal.Inc()
		c.log.Debug("Comment list too large to cache", "article_id", articleID, "count", len(list))
		return StatusRefused, nil
	}
	if list == nil {
		list = []models.CommentEntry{}
	}
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return StatusMiss, fmt.Errorf("comment cache store: %w", err)
	}
	if err := c.write(ctx, rdb, articleID, list); err != nil {
		return StatusMiss, err
	}
	return StatusStored, c.evict(ctx, rdb)
}

func (c *RedisCommentCache) AppendIfPresent(ctx context.Context, articleID int64, comment models.CommentEntry) (Status, error) {
	rdb, err := c.gw.Acquire(ctx)
	if err != nil {
		return StatusMiss, fmt.Errorf("comment cache append: %w", err)
	}

	key := CommentKey(articleID)
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return StatusMiss, nil
	}
	if err != nil {
		c.gw.Observe(rdb, err)
		return StatusMiss, fmt.Errorf("comment cache append %s: %w", key, err)
	}
	list, ok := c.decode(ctx, rdb, articleID, raw)
	if !ok {
		return StatusMiss, nil
	}

	next := make([]models.CommentEntry, 0, len(list)+1)
	next = append(next, comment)
	next = append(next, list...)
	if len(next) > c.opts.MaxCommentsPerArticle {
		next = next[:c.opts.MaxCommentsPerArticle]
	}
	if err := c.write(ctx, rdb, articleID, next); err != nil {
		return StatusMiss, err
	}
	return StatusStored, c.evict(ctx, rdb)
}

// write replaces the list and touches the LRU index in one batch.
func (c *RedisCommentCache) write(ctx context.Context, rdb redis.UniversalClient, articleID int64, list []models.CommentEntry) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("comment cache encode %d: %w", articleID, err)
	}
	score, err := c.touchScore(ctx, rdb, articleID)
	if err != nil {
		return err
	}
	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, CommentKey(articleID), payload, c.opts.TTL)
		p.ZAdd(ctx, CommentLRUKey, score)
		return nil
	})
	if err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("comment cache write %d: %w", articleID, err)
	}
	return nil
}

func (c *RedisCommentCache) touch(ctx context.Context, rdb redis.UniversalClient, articleID int64) error {
	score, err := c.touchScore(ctx, rdb, articleID)
	if err != nil {
		return err
	}
	if err := rdb.ZAdd(ctx, CommentLRUKey, score).Err(); err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("comment cache touch %d: %w", articleID, err)
	}
	return c.evict(ctx, rdb)
}

// touchScore draws the next value of the store-wide touch sequence, so scores strictly
// increase across processes and ties never fall back to member order.
func (c *RedisCommentCache) touchScore(ctx context.Context, rdb redis.UniversalClient, articleID int64) (*redis.Z, error) {
	seq, err := rdb.Incr(ctx, CommentLRUSeqKey).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return nil, fmt.Errorf("comment cache touch sequence %d: %w", articleID, err)
	}
	return &redis.Z{Score: float64(seq), Member: member(articleID)}, nil
}

// evict drops the least recently touched lists above MaxArticles.
func (c *RedisCommentCache) evict(ctx context.Context, rdb redis.UniversalClient) error {
	count, err := rdb.ZCard(ctx, CommentLRUKey).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("comment cache lru size: %w", err)
	}
	over := count - int64(c.opts.MaxArticles)
	if over <= 0 {
		return nil
	}

	victims, err := rdb.ZRange(ctx, CommentLRUKey, 0, over-1).Result()
	if err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("comment cache lru victims: %w", err)
	}
	if len(victims) == 0 {
		return nil
	}

	members := make([]interface{}, len(victims))
	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, v := range victims {
			p.Del(ctx, commentKey(v))
			members[i] = v
		}
		p.ZRem(ctx, CommentLRUKey, members...)
		return nil
	})
	if err != nil {
		c.gw.Observe(rdb, err)
		return fmt.Errorf("comment cache evict: %w", err)
	}
	metrics.CommentCacheEvictionsTotal.Add(float64(len(victims)))
	c.log.Debug("Evicted comment lists", "count", len(victims), "article_ids", victims)
	return nil
}

// decode parses a cached list. A corrupted entry is deleted together with its
// LRU member and reported as absent.
func (c *RedisCommentCache) decode(ctx context.Context, rdb redis.UniversalClient, articleID int64, raw []byte) ([]models.CommentEntry, bool) {
	var list []models.CommentEntry
	if err := json.Unmarshal(raw, &list); err != nil {
		c.log.Warn("Failed to deserialize cached comments", "article_id", articleID, "error", err)
		_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, CommentKey(articleID))
			p.ZRem(ctx, CommentLRUKey, member(articleID))
			return nil
		})
		if err != nil {
			c.gw.Observe(rdb, err)
		}
		return nil, false
	}
	if list == nil {
		list = []models.CommentEntry{}
	}
	return list, true
}

// NoOpCommentCache is used when the comment cache is disabled.
type NoOpCommentCache struct{}

var _ CommentCache = NoOpCommentCache{}

func (NoOpCommentCache) TryGetAll(context.Context, int64) (Lookup[[]models.CommentEntry], error) {
	return Lookup[[]models.CommentEntry]{Status: StatusBypassed}, nil
}

func (NoOpCommentCache) StoreAll(context.Context, int64, []models.CommentEntry) (Status, error) {
	return StatusBypassed, nil
}

func (NoOpCommentCache) AppendIfPresent(context.Context, int64, models.CommentEntry) (Status, error) {
	return StatusBypassed, nil
}
