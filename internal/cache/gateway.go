package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/happyheadlines/headlines-backend/internal/pkg/metrics"
)

const defaultDialTimeout = 5 * time.Second

// Dialer opens a live connection to the cache store.
type Dialer func(ctx context.Context) (redis.UniversalClient, error)

// NewRedisDialer returns a Dialer that creates a client for opts and pings it.
func NewRedisDialer(opts *redis.Options) Dialer {
	return func(ctx context.Context) (redis.UniversalClient, error) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
		}
		return client, nil
	}
}

// Gateway lazily establishes and memoizes one cache store connection.
// Concurrent Acquire calls share a single connect attempt and its result.
// A failed attempt is not memoized.
type Gateway struct {
	dial        Dialer
	dialTimeout time.Duration
	log         *slog.Logger

	mu     sync.Mutex
	client redis.UniversalClient
	group  singleflight.Group
}

// NewGateway creates a gateway. dialTimeout <= 0 uses 5s.
func NewGateway(dial Dialer, dialTimeout time.Duration, log *slog.Logger) *Gateway {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Gateway{dial: dial, dialTimeout: dialTimeout, log: log}
}

// Acquire returns the held connection, connecting first if there is none.
func (g *Gateway) Acquire(ctx context.Context) (redis.UniversalClient, error) {
	if c := g.current(); c != nil {
		return c, nil
	}
	// The connect outlives the first caller's cancellation so that waiters are not failed by it.
	ch := g.group.DoChan("connect", func() (interface{}, error) {
		return g.connect(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(redis.UniversalClient), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Observe drops the held connection when err shows that client can no longer reach the store.
// The next Acquire reconnects.
func (g *Gateway) Observe(client redis.UniversalClient, err error) {
	if !IsConnectivityError(err) {
		return
	}
	g.mu.Lock()
	if g.client == nil || g.client != client {
		g.mu.Unlock()
		return
	}
	g.client = nil
	g.mu.Unlock()

	g.log.Warn("Cache store connection lost, will reconnect", "error", err)
	_ = client.Close()
}

// Close releases the held connection, if any.
func (g *Gateway) Close() error {
	g.mu.Lock()
	c := g.client
	g.client = nil
	g.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (g *Gateway) current() redis.UniversalClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client
}

func (g *Gateway) connect(ctx context.Context) (redis.UniversalClient, error) {
	if c := g.current(); c != nil {
		return c, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.dialTimeout)
	defer cancel()

	start := time.Now()
	g.log.Info("Connecting to cache store")
	client, err := g.dial(ctx)
	if err != nil {
		metrics.CacheConnectsTotal.WithLabelValues("error").Inc()
		g.log.Error("Cache store connect failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("cache connect: %w", err)
	}

	g.mu.Lock()
	g.client = client
	g.mu.Unlock()

	metrics.CacheConnectsTotal.WithLabelValues("ok").Inc()
	g.log.Info("Connected to cache store", "duration_ms", time.Since(start).Milliseconds())
	return client, nil
}

// IsConnectivityError reports whether err means the store connection is unusable,
// as opposed to a miss or a cancelled caller.
func IsConnectivityError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
