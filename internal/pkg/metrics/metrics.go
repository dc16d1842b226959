// Package metrics provides Prometheus metrics for the headlines backend (RED + cache + prewarm).
// Scrapeable on /metrics; dashboards rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "headlines"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// DBQueryDurationSeconds is backing-store query latency by operation.
	DBQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Backing store query duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	ArticleCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_article_hit_total",
			Help:      "Article cache hits by shard.",
		},
		[]string{"shard"},
	)

	ArticleCacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_article_miss_total",
			Help:      "Article cache misses by shard.",
		},
		[]string{"shard"},
	)

	CommentCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_comment_hit_total",
			Help:      "Comment list cache hits.",
		},
	)

	CommentCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_comment_miss_total",
			Help:      "Comment list cache misses.",
		},
	)

	// CommentCacheEvictionsTotal counts article comment lists dropped by the LRU bound.
	CommentCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_comment_evictions_total",
			Help:      "Comment lists evicted by the article LRU bound.",
		},
	)

	// CommentCacheSkipLargeTotal counts comment lists refused for exceeding the per-article bound.
	CommentCacheSkipLargeTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_comment_skip_large_total",
			Help:      "Comment lists not cached because they exceed the per-article bound.",
		},
	)

	PrewarmRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_article_prewarm_runs_total",
			Help:      "Article cache prewarm runs.",
		},
	)

	PrewarmErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_article_prewarm_errors_total",
			Help:      "Article cache prewarm runs that failed.",
		},
	)

	PrewarmDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_article_prewarm_duration_seconds",
			Help:      "Article cache prewarm run duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 10),
		},
	)

	// CacheConnectsTotal counts cache store connect attempts by result (ok, error).
	CacheConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_connects_total",
			Help:      "Cache store connect attempts by result.",
		},
		[]string{"result"},
	)
)
