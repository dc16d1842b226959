package config

import (
	"testing"
	"time"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("Expected default driver sqlite, got %s", cfg.DatabaseDriver)
	}
	if !cfg.ArticleCacheEnabled || !cfg.CommentCacheEnabled {
		t.Error("Expected caches to be enabled by default")
	}
	if cfg.CommentCacheMaxArticles != cache.DefaultCommentMaxArticles {
		t.Errorf("Expected max articles %d, got %d", cache.DefaultCommentMaxArticles, cfg.CommentCacheMaxArticles)
	}
	if cfg.PrewarmInterval() != 5*time.Minute {
		t.Errorf("Expected prewarm interval 5m, got %s", cfg.PrewarmInterval())
	}

	ao := cfg.ArticleOptions()
	if ao.TTL != cache.DefaultArticleTTL || ao.StaleAfter != cache.DefaultArticleStaleAfter {
		t.Errorf("Unexpected article options %+v", ao)
	}
	co := cfg.CommentOptions()
	if co.TTL != cache.DefaultCommentTTL || co.MaxCommentsPerArticle != cache.DefaultMaxCommentsPerArticle {
		t.Errorf("Unexpected comment options %+v", co)
	}
	if cfg.ProfanityServiceURL != "" {
		t.Errorf("Expected no profanity service by default, got %s", cfg.ProfanityServiceURL)
	}
	if cfg.ProfanityTimeout() != 3*time.Second || cfg.ProfanityRefreshInterval() != 10*time.Minute {
		t.Errorf("Unexpected profanity timings %s / %s", cfg.ProfanityTimeout(), cfg.ProfanityRefreshInterval())
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HEADLINES_PORT", "9000")
	t.Setenv("HEADLINES_REDIS_ADDR", "cache:6380")
	t.Setenv("HEADLINES_COMMENT_CACHE_ENABLED", "false")
	t.Setenv("HEADLINES_DATABASE_DRIVER", "Postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
	if cfg.RedisAddr != "cache:6380" {
		t.Errorf("Expected redis addr cache:6380, got %s", cfg.RedisAddr)
	}
	if cfg.CommentCacheEnabled {
		t.Error("Expected comment cache to be disabled")
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("Expected driver postgres, got %s", cfg.DatabaseDriver)
	}
}

func TestLoad_ClampsBounds(t *testing.T) {
	tests := []struct {
		name        string
		maxArticles string
		interval    string
		wantMax     int
		wantMin     int
	}{
		{"below minimum", "1", "0", 5, 1},
		{"above maximum", "1000", "-3", 200, 1},
		{"in range", "42", "10", 42, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HEADLINES_COMMENT_CACHE_MAX_ARTICLES", tt.maxArticles)
			t.Setenv("HEADLINES_ARTICLE_CACHE_PREWARM_INTERVAL_MIN", tt.interval)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if cfg.CommentCacheMaxArticles != tt.wantMax {
				t.Errorf("Expected max articles %d, got %d", tt.wantMax, cfg.CommentCacheMaxArticles)
			}
			if cfg.ArticleCachePrewarmIntervalMin != tt.wantMin {
				t.Errorf("Expected interval %d, got %d", tt.wantMin, cfg.ArticleCachePrewarmIntervalMin)
			}
		})
	}
}

func TestLoad_ArticleTTLOutlivesStaleWindow(t *testing.T) {
	tests := []struct {
		name      string
		ttlHours  string
		staleDays string
		wantTTL   int
	}{
		{"shorter than window", "24", "14", 15 * 24},
		{"equal to window", "72", "3", 4 * 24},
		{"longer than window", "500", "14", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HEADLINES_ARTICLE_CACHE_TTL_HOURS", tt.ttlHours)
			t.Setenv("HEADLINES_ARTICLE_CACHE_STALE_AFTER_DAYS", tt.staleDays)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if cfg.ArticleCacheTTLHours != tt.wantTTL {
				t.Errorf("Expected TTL %dh, got %dh", tt.wantTTL, cfg.ArticleCacheTTLHours)
			}
			opts := cfg.ArticleOptions()
			if opts.TTL <= opts.StaleAfter {
				t.Errorf("Expected TTL %s to exceed stale window %s", opts.TTL, opts.StaleAfter)
			}
		})
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("HEADLINES_DATABASE_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("Expected an error for an unsupported driver")
	}
}

func TestShardDSN(t *testing.T) {
	cfg := &Config{ArticleDSNTemplate: "file:/data/articles-{shard}.db"}
	if got := cfg.ShardDSN(models.GlobalShard); got != "file:/data/articles-global.db" {
		t.Errorf("Unexpected global DSN %s", got)
	}
	if got := cfg.ShardDSN(models.NorthAmerica); got != "file:/data/articles-northamerica.db" {
		t.Errorf("Unexpected north america DSN %s", got)
	}
}
