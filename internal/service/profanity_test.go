package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyheadlines/headlines-backend/internal/pkg/logger"
)

func TestLocalProfanityFilter_Sanitize(t *testing.T) {
	f := NewLocalProfanityFilter([]string{"Darn", " heck ", "", "darn", "a.b"})

	tests := []struct {
		in   string
		want string
	}{
		{"darn it", "**** it"},
		{"DARN, HECK!", "****, ****!"},
		{"darned heckle", "darned heckle"},
		{"axb a.b", "axb ***"},
		{"clean text", "clean text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Sanitize(tt.in), tt.in)
	}

	sanitized, found, err := f.Filter(context.Background(), "heck")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "****", sanitized)
}

func TestLocalProfanityFilter_ReplaceDictionary(t *testing.T) {
	f := NewLocalProfanityFilter(nil)
	assert.Equal(t, "darn", f.Sanitize("darn"))

	assert.Equal(t, 1, f.ReplaceDictionary([]string{"darn"}))
	assert.Equal(t, "****", f.Sanitize("darn"))

	assert.Equal(t, 0, f.ReplaceDictionary(nil))
	_, found, err := f.Filter(context.Background(), "darn")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProfanityClient_UsesService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profanity/filter", r.URL.Path)
		var req filterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(filterResponse{SanitizedContent: "[" + req.Content + "]", HasProfanity: true})
	}))
	defer srv.Close()

	c := NewProfanityClient(srv.URL+"/", time.Second, NewLocalProfanityFilter(nil), logger.Discard())
	sanitized, found, err := c.Filter(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[hello]", sanitized)
}

func TestProfanityClient_FallsBackToLocalFilter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewProfanityClient(srv.URL, time.Second, NewLocalProfanityFilter([]string{"darn"}), logger.Discard())
	sanitized, found, err := c.Filter(context.Background(), "darn it")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "**** it", sanitized)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestProfanityClient_RefreshDictionary(t *testing.T) {
	var words atomic.Pointer[[]string]
	words.Store(&[]string{"darn"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profanity/words", r.URL.Path)
		_ = json.NewEncoder(w).Encode(*words.Load())
	}))
	defer srv.Close()

	local := NewLocalProfanityFilter([]string{"heck"})
	c := NewProfanityClient(srv.URL, time.Second, local, logger.Discard())

	require.NoError(t, c.RefreshDictionary(context.Background()))
	assert.Equal(t, "**** heck", local.Sanitize("darn heck"))

	words.Store(&[]string{})
	require.NoError(t, c.RefreshDictionary(context.Background()))
	assert.Equal(t, "**** heck", local.Sanitize("darn heck"), "an empty dictionary keeps the current one")
}
