package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"timestamp":"2024-01-01T00:00:00Z","stance":"Neutral"}`

func newServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	for path, handler := range handlers {
		mux.HandleFunc(path, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestEmptyCandidateListFails(t *testing.T) {
	_, err := loader.New(nil, time.Second)
	assert.Error(t, err)
}

func TestCandidateOrderPreserved(t *testing.T) {
	candidates := []string{"a.json", "https://mirror.test/a.json"}
	l, err := loader.New(candidates, time.Second)
	require.NoError(t, err)
	assert.Equal(t, candidates, l.Candidates())
}

func TestFirstCandidateWins(t *testing.T) {
	var secondCalled int64
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(validBody))
		},
		"/b/latest.json": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&secondCalled, 1)
			w.Write([]byte(validBody))
		},
	})

	l, err := loader.New([]string{server.URL + "/a/latest.json", server.URL + "/b/latest.json"}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	assert.True(t, ok)
	assert.Equal(t, server.URL+"/a/latest.json", snap.Source)
	assert.Equal(t, int64(0), atomic.LoadInt64(&secondCalled), "later candidates must not be touched after a success")
}

func TestFallsThroughToSecondCandidate(t *testing.T) {
	var thirdCalled int64
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"/b/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(validBody))
		},
		"/c/latest.json": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&thirdCalled, 1)
		},
	})

	l, err := loader.New([]string{
		server.URL + "/a/latest.json",
		server.URL + "/b/latest.json",
		server.URL + "/c/latest.json",
	}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, server.URL+"/b/latest.json", snap.Source)
	assert.Equal(t, "Neutral", snap.Document["stance"])
	assert.Equal(t, int64(0), atomic.LoadInt64(&thirdCalled))
}

func TestAllCandidatesFailReturnsUnavailable(t *testing.T) {
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})

	l, err := loader.New([]string{server.URL + "/a/latest.json", server.URL + "/missing.json"}, time.Second)
	require.NoError(t, err)

	_, ok := l.Load(context.Background())
	assert.False(t, ok, "all-fail must be an explicit unavailable result, never a panic or error")
}

func TestSuccessStatusWithInvalidBodyIsAFailure(t *testing.T) {
	server := newServer(t, map[string]http.HandlerFunc{
		"/bad/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		},
		"/good/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(validBody))
		},
	})

	l, err := loader.New([]string{server.URL + "/bad/latest.json", server.URL + "/good/latest.json"}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, server.URL+"/good/latest.json", snap.Source)
}

func TestDocumentWithoutTimestampIsAFailure(t *testing.T) {
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"stance":"Neutral"}`))
		},
	})

	l, err := loader.New([]string{server.URL + "/a/latest.json"}, time.Second)
	require.NoError(t, err)

	_, ok := l.Load(context.Background())
	assert.False(t, ok, "a document without a timestamp is not a snapshot")
}

func TestGeneratedAtFieldAccepted(t *testing.T) {
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"generatedAt":"2024-06-01T12:00:00Z"}`))
		},
	})

	l, err := loader.New([]string{server.URL + "/a/latest.json"}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2024, snap.GeneratedAt.Year())
	assert.Equal(t, time.June, snap.GeneratedAt.Month())
}

func TestCacheBusterAppended(t *testing.T) {
	var query atomic.Value
	server := newServer(t, map[string]http.HandlerFunc{
		"/a/latest.json": func(w http.ResponseWriter, r *http.Request) {
			query.Store(r.URL.Query().Get("t"))
			w.Write([]byte(validBody))
		},
	})

	l, err := loader.New([]string{server.URL + "/a/latest.json"}, time.Second)
	require.NoError(t, err)

	_, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.NotEmpty(t, query.Load(), "remote fetches must carry the cache-busting t parameter")
}

func TestLocalFileCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")
	require.NoError(t, os.WriteFile(path, []byte(validBody), 0o644))

	l, err := loader.New([]string{filepath.Join(dir, "missing.json"), path}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, path, snap.Source)
}

func TestLegacyTimestampFormatAccepted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timestamp":"2024-01-02 03:04:05 UTC"}`), 0o644))

	l, err := loader.New([]string{path}, time.Second)
	require.NoError(t, err)

	snap, ok := l.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, snap.GeneratedAt.Hour())
}
