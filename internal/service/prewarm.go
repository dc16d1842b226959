package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/metrics"
	"github.com/happyheadlines/headlines-backend/internal/pkg/tracing"
	"github.com/happyheadlines/headlines-backend/internal/repository"
)

// ErrPrewarmInProgress is returned by RunOnce while another run is active.
var ErrPrewarmInProgress = errors.New("prewarm already running")

// PrewarmState is the scheduler state.
type PrewarmState int32

const (
	PrewarmIdle PrewarmState = iota
	PrewarmRunning
)

func (s PrewarmState) String() string {
	if s == PrewarmRunning {
		return "running"
	}
	return "idle"
}

// ShardResolver returns the article store of a shard.
type ShardResolver interface {
	For(shard models.Shard) (repository.ArticleRepository, error)
}

// PrewarmOptions tunes PrewarmService. Zero fields take the defaults.
type PrewarmOptions struct {
	Interval   time.Duration
	Limit      int
	StaleAfter time.Duration
	Now        func() time.Time
}

// PrewarmService periodically replaces each shard's article cache with the
// freshest articles of its store.
type PrewarmService struct {
	shards ShardResolver
	cache  cache.ArticleCache
	opts   PrewarmOptions
	log    *slog.Logger

	state    atomic.Int32
	started  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPrewarmService creates a new prewarm service
func NewPrewarmService(shards ShardResolver, c cache.ArticleCache, opts PrewarmOptions, log *slog.Logger) *PrewarmService {
	if opts.Interval < time.Minute {
		opts.Interval = 5 * time.Minute
	}
	if opts.Limit <= 0 {
		opts.Limit = cache.DefaultPrewarmLimit
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = cache.DefaultArticleStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PrewarmService{
		shards: shards,
		cache:  c,
		opts:   opts,
		log:    log,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// State reports whether a run is in progress.
func (s *PrewarmService) State() PrewarmState {
	return PrewarmState(s.state.Load())
}

// Start runs the prewarm once immediately and then every interval until Stop or ctx is done.
func (s *PrewarmService) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("Starting article cache prewarm", "interval", s.opts.Interval, "limit", s.opts.Limit)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stopCh:
				s.log.Info("Article cache prewarm stopped")
				return
			case <-ctx.Done():
				s.log.Info("Article cache prewarm context cancelled")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for the current run to finish. Safe to call more than once.
func (s *PrewarmService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *PrewarmService) tick(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrPrewarmInProgress) {
		s.log.Warn("Article cache prewarm failed", "error", err)
	}
}

// RunOnce refreshes the global shard and then every regional shard.
// The first failing shard aborts the rest of the run.
func (s *PrewarmService) RunOnce(ctx context.Context) (err error) {
	if !s.state.CompareAndSwap(int32(PrewarmIdle), int32(PrewarmRunning)) {
		return ErrPrewarmInProgress
	}
	defer s.state.Store(int32(PrewarmIdle))

	ctx, span := tracing.StartSpan(ctx, "cache.prewarm")
	start := time.Now()
	defer func() {
		metrics.PrewarmRunsTotal.Inc()
		metrics.PrewarmDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PrewarmErrorsTotal.Inc()
		}
		tracing.End(span, err)
	}()

	since := s.opts.Now().Add(-s.opts.StaleAfter)
	total := 0
	for _, shard := range models.AllShards() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.warmShard(ctx, shard, since)
		if err != nil {
			return fmt.Errorf("prewarm %s: %w", shard.Name(), err)
		}
		total += n
	}
	s.log.Info("Article cache prewarm completed", "written", total, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *PrewarmService) warmShard(ctx context.Context, shard models.Shard, since time.Time) (int, error) {
	repo, err := s.shards.For(shard)
	if err != nil {
		return 0, err
	}
	articles, err := repo.GetRecentSince(ctx, since, s.opts.Limit)
	if err != nil {
		return 0, err
	}
	entries := make([]models.ArticleEntry, len(articles))
	for i, a := range articles {
		entries[i] = a.Entry()
	}
	n, err := s.cache.BulkReplace(ctx, shard, entries)
	if err != nil {
		return 0, err
	}
	s.log.Debug("Prewarmed shard", "shard", shard.Name(), "read", len(articles), "written", n)
	return n, nil
}
