package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
)

// ProfanityFilter masks profanity in comment text before it is stored.
type ProfanityFilter interface {
	Filter(ctx context.Context, content string) (sanitized string, found bool, err error)
}

// LocalProfanityFilter masks whole dictionary words, case-insensitively, with '*'.
type LocalProfanityFilter struct {
	mu sync.RWMutex
	re *regexp.Regexp
}

var _ ProfanityFilter = (*LocalProfanityFilter)(nil)

func NewLocalProfanityFilter(words []string) *LocalProfanityFilter {
	f := &LocalProfanityFilter{}
	f.ReplaceDictionary(words)
	return f
}

// ReplaceDictionary swaps the word list and returns its size. An empty list disables masking.
func (f *LocalProfanityFilter) ReplaceDictionary(words []string) int {
	seen := make(map[string]struct{}, len(words))
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	sort.Strings(quoted)

	var re *regexp.Regexp
	if len(quoted) > 0 {
		re = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	f.mu.Lock()
	f.re = re
	f.mu.Unlock()
	return len(quoted)
}

// Sanitize returns content with every dictionary word replaced by asterisks of the same length.
func (f *LocalProfanityFilter) Sanitize(content string) string {
	f.mu.RLock()
	re := f.re
	f.mu.RUnlock()
	if re == nil {
		return content
	}
	return re.ReplaceAllStringFunc(content, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}

func (f *LocalProfanityFilter) Filter(_ context.Context, content string) (string, bool, error) {
	sanitized := f.Sanitize(content)
	return sanitized, sanitized != content, nil
}

type filterRequest struct {
	Content string `json:"content"`
}

type filterResponse struct {
	SanitizedContent string   `json:"sanitizedContent"`
	HasProfanity     bool     `json:"hasProfanity"`
	Matches          []string `json:"matches"`
}

// ProfanityClient filters through the profanity service and falls back to a local
// filter whenever the service cannot answer.
type ProfanityClient struct {
	baseURL  string
	http     *retryablehttp.Client
	fallback *LocalProfanityFilter
	log      *slog.Logger
}

var _ ProfanityFilter = (*ProfanityClient)(nil)

// NewProfanityClient creates a client for the service at baseURL. Each call is bounded by
// timeout and retried twice on connection errors and 5xx responses.
func NewProfanityClient(baseURL string, timeout time.Duration, fallback *LocalProfanityFilter, log *slog.Logger) *ProfanityClient {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = 2
	rc.RetryWaitMin = 50 * time.Millisecond
	rc.RetryWaitMax = 500 * time.Millisecond
	rc.Logger = log
	return &ProfanityClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     rc,
		fallback: fallback,
		log:      log,
	}
}

func (c *ProfanityClient) Filter(ctx context.Context, content string) (string, bool, error) {
	sanitized, found, err := c.remoteFilter(ctx, content)
	if err != nil {
		c.log.Warn("Profanity service unavailable, using local filter", "error", err)
		return c.fallback.Filter(ctx, content)
	}
	return sanitized, found, nil
}

func (c *ProfanityClient) remoteFilter(ctx context.Context, content string) (string, bool, error) {
	body, err := json.Marshal(filterRequest{Content: content})
	if err != nil {
		return "", false, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/profanity/filter", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out filterResponse
	if err := c.do(req, &out); err != nil {
		return "", false, fmt.Errorf("profanity filter: %w", err)
	}
	return out.SanitizedContent, out.HasProfanity, nil
}

// Words fetches the service's dictionary.
func (c *ProfanityClient) Words(ctx context.Context) ([]string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profanity/words", nil)
	if err != nil {
		return nil, err
	}
	var words []string
	if err := c.do(req, &words); err != nil {
		return nil, fmt.Errorf("profanity words: %w", err)
	}
	return words, nil
}

// RefreshDictionary loads the service's dictionary into the local fallback.
// An empty dictionary keeps the current one.
func (c *ProfanityClient) RefreshDictionary(ctx context.Context) error {
	words, err := c.Words(ctx)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	n := c.fallback.ReplaceDictionary(words)
	c.log.Info("Profanity dictionary updated", "words", n)
	return nil
}

// RunDictionaryRefresh refreshes the fallback dictionary now and then every interval until ctx is done.
func (c *ProfanityClient) RunDictionaryRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.RefreshDictionary(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("Failed refreshing profanity dictionary", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *ProfanityClient) do(req *retryablehttp.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
