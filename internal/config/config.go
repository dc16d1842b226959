package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
)

const (
	minCommentMaxArticles = 5
	maxCommentMaxArticles = 200
	minPrewarmIntervalMin = 1

	defaultProfanityTimeoutSec = 3
	defaultProfanityRefreshMin = 10
)

type Config struct {
	Port               int      `mapstructure:"port"`
	LogLevel           string   `mapstructure:"log_level"`
	LogFormat          string   `mapstructure:"log_format"` // json or text
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = use server default
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait

	DatabaseDriver     string `mapstructure:"database_driver"`      // sqlite or postgres
	ArticleDSNTemplate string `mapstructure:"article_dsn_template"` // {shard} is replaced by the shard name
	CommentDSN         string `mapstructure:"comment_dsn"`

	RedisAddr           string `mapstructure:"redis_addr"`
	RedisPassword       string `mapstructure:"redis_password"`
	RedisDB             int    `mapstructure:"redis_db"`
	RedisDialTimeoutSec int    `mapstructure:"redis_dial_timeout_sec"`

	ArticleCacheEnabled            bool `mapstructure:"article_cache_enabled"`
	ArticleCacheTTLHours           int  `mapstructure:"article_cache_ttl_hours"`
	ArticleCacheStaleAfterDays     int  `mapstructure:"article_cache_stale_after_days"`
	ArticleCachePrewarmIntervalMin int  `mapstructure:"article_cache_prewarm_interval_min"` // at least 1
	ArticleCachePrewarmLimit       int  `mapstructure:"article_cache_prewarm_limit"`

	CommentCacheEnabled     bool `mapstructure:"comment_cache_enabled"`
	CommentCacheTTLMin      int  `mapstructure:"comment_cache_ttl_min"`
	CommentCacheMaxArticles int  `mapstructure:"comment_cache_max_articles"` // clamped to [5,200]
	CommentCacheMaxComments int  `mapstructure:"comment_cache_max_comments"`

	ProfanityServiceURL string   `mapstructure:"profanity_service_url"` // empty = local dictionary only
	ProfanityWords      []string `mapstructure:"profanity_words"`       // initial local dictionary
	ProfanityTimeoutSec int      `mapstructure:"profanity_timeout_sec"`
	ProfanityRefreshMin int      `mapstructure:"profanity_refresh_min"` // dictionary pull interval

	TracingEndpoint     string  `mapstructure:"tracing_endpoint"` // empty = tracing disabled
	TracingSamplingRate float64 `mapstructure:"tracing_sampling_rate"`
	RateLimitPerMin     int     `mapstructure:"rate_limit_per_min"` // per client IP; 0 = no limit
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/headlines/")
	viper.AddConfigPath("$HOME/.headlines")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("database_driver", "sqlite")
	viper.SetDefault("article_dsn_template", "file:headlines-articles-{shard}.db?_pragma=busy_timeout(5000)")
	viper.SetDefault("comment_dsn", "file:headlines-comments.db?_pragma=busy_timeout(5000)")
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("redis_db", 0)
	viper.SetDefault("redis_dial_timeout_sec", 5)
	viper.SetDefault("article_cache_enabled", true)
	viper.SetDefault("article_cache_ttl_hours", 15*24)
	viper.SetDefault("article_cache_stale_after_days", 14)
	viper.SetDefault("article_cache_prewarm_interval_min", 5)
	viper.SetDefault("article_cache_prewarm_limit", cache.DefaultPrewarmLimit)
	viper.SetDefault("comment_cache_enabled", true)
	viper.SetDefault("comment_cache_ttl_min", 120)
	viper.SetDefault("comment_cache_max_articles", cache.DefaultCommentMaxArticles)
	viper.SetDefault("comment_cache_max_comments", cache.DefaultMaxCommentsPerArticle)
	viper.SetDefault("profanity_service_url", "")
	viper.SetDefault("profanity_words", []string{})
	viper.SetDefault("profanity_timeout_sec", defaultProfanityTimeoutSec)
	viper.SetDefault("profanity_refresh_min", defaultProfanityRefreshMin)
	viper.SetDefault("tracing_endpoint", "")
	viper.SetDefault("tracing_sampling_rate", 1.0)
	viper.SetDefault("rate_limit_per_min", 600)

	// Environment variables
	viper.SetEnvPrefix("HEADLINES")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database_driver %q (want sqlite or postgres)", c.DatabaseDriver)
	}
	if c.CommentCacheMaxArticles < minCommentMaxArticles {
		c.CommentCacheMaxArticles = minCommentMaxArticles
	}
	if c.CommentCacheMaxArticles > maxCommentMaxArticles {
		c.CommentCacheMaxArticles = maxCommentMaxArticles
	}
	if c.ArticleCachePrewarmIntervalMin < minPrewarmIntervalMin {
		c.ArticleCachePrewarmIntervalMin = minPrewarmIntervalMin
	}
	if c.ArticleCacheStaleAfterDays <= 0 {
		c.ArticleCacheStaleAfterDays = int(cache.DefaultArticleStaleAfter / (24 * time.Hour))
	}
	// Entries must outlive the staleness window so borderline articles stay servable.
	if c.ArticleCacheTTLHours <= c.ArticleCacheStaleAfterDays*24 {
		c.ArticleCacheTTLHours = (c.ArticleCacheStaleAfterDays + 1) * 24
	}
	if c.ArticleCachePrewarmLimit <= 0 {
		c.ArticleCachePrewarmLimit = cache.DefaultPrewarmLimit
	}
	if c.CommentCacheMaxComments <= 0 {
		c.CommentCacheMaxComments = cache.DefaultMaxCommentsPerArticle
	}
	c.ProfanityServiceURL = strings.TrimRight(strings.TrimSpace(c.ProfanityServiceURL), "/")
	if c.ProfanityTimeoutSec <= 0 {
		c.ProfanityTimeoutSec = defaultProfanityTimeoutSec
	}
	if c.ProfanityRefreshMin <= 0 {
		c.ProfanityRefreshMin = defaultProfanityRefreshMin
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		c.TracingSamplingRate = 1.0
	}
	return nil
}

// ShardDSN returns the article store DSN of shard.
func (c *Config) ShardDSN(shard models.Shard) string {
	return strings.ReplaceAll(c.ArticleDSNTemplate, "{shard}", shard.Name())
}

func (c *Config) PrewarmInterval() time.Duration {
	return time.Duration(c.ArticleCachePrewarmIntervalMin) * time.Minute
}

func (c *Config) RedisDialTimeout() time.Duration {
	return time.Duration(c.RedisDialTimeoutSec) * time.Second
}

func (c *Config) ProfanityTimeout() time.Duration {
	return time.Duration(c.ProfanityTimeoutSec) * time.Second
}

func (c *Config) ProfanityRefreshInterval() time.Duration {
	return time.Duration(c.ProfanityRefreshMin) * time.Minute
}

func (c *Config) ArticleOptions() cache.ArticleOptions {
	return cache.ArticleOptions{
		TTL:        time.Duration(c.ArticleCacheTTLHours) * time.Hour,
		StaleAfter: time.Duration(c.ArticleCacheStaleAfterDays) * 24 * time.Hour,
	}
}

func (c *Config) CommentOptions() cache.CommentOptions {
	return cache.CommentOptions{
		TTL:                   time.Duration(c.CommentCacheTTLMin) * time.Minute,
		MaxArticles:           c.CommentCacheMaxArticles,
		MaxCommentsPerArticle: c.CommentCacheMaxComments,
	}
}
