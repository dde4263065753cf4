package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/cache"
	"github.com/kaledh4/daily-alpha-loop/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fngBody = `{"data":[{"value":"71","value_classification":"Greed","timestamp":"1717200000"}]}`

const treasuryBody = `{"data":[{"bid_to_cover_ratio":"2.42","auction_date":"2024-06-11"}]}`

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Wire</title>
<item><title>Headline one</title><link>https://example.test/1</link><pubDate>Mon, 10 Jun 2024 12:00:00 GMT</pubDate></item>
<item><title>Headline two</title><link>https://example.test/2</link><pubDate>Mon, 10 Jun 2024 13:00:00 GMT</pubDate></item>
</channel></rss>`

func newClient(t *testing.T) *sources.Client {
	memo := cache.NewMemoizer(cache.New(time.Minute))
	return sources.NewClient(memo, &http.Client{Timeout: time.Second})
}

func TestFearGreed(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(fngBody))
	}))
	defer server.Close()

	c := newClient(t)
	c.FearGreedURL = server.URL

	fng, err := c.FearGreed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 71, fng.Value)
	assert.Equal(t, "Greed", fng.Classification)

	// second read within the TTL is served from cache
	_, err = c.FearGreed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestFearGreedBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := newClient(t)
	c.FearGreedURL = server.URL

	_, err := c.FearGreed(context.Background())
	assert.Error(t, err)
}

func TestTreasuryAuction(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query().Get("filter"))
		w.Write([]byte(treasuryBody))
	}))
	defer server.Close()

	c := newClient(t)
	c.TreasuryURL = server.URL

	auction, err := c.TreasuryAuction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.42, auction.BidToCover)
	assert.Equal(t, "2024-06-11", auction.AuctionDate)
	assert.Contains(t, query.Load(), "10-Year")
}

func TestTreasuryAuctionUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newClient(t)
	c.TreasuryURL = server.URL

	_, err := c.TreasuryAuction(context.Background())
	assert.Error(t, err)
}

func TestNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := newClient(t)
	c.Feeds = []string{server.URL}

	articles, err := c.News(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Headline one", articles[0].Title)
	assert.Equal(t, "Test Wire", articles[0].Source)
	assert.Equal(t, "https://example.test/1", articles[0].Link)
}

func TestNewsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := newClient(t)
	c.Feeds = []string{server.URL}

	articles, err := c.News(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestNewsSkipsFailingFeed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer broken.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer healthy.Close()

	c := newClient(t)
	c.Feeds = []string{broken.URL, healthy.URL}

	articles, err := c.News(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2, "one broken feed must not sink the rest")
}

func TestNewsAllFeedsFailing(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer broken.Close()

	c := newClient(t)
	c.Feeds = []string{broken.URL}

	_, err := c.News(context.Background(), 0)
	assert.Error(t, err)
}

func TestNewsMemoized(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := newClient(t)
	c.Feeds = []string{server.URL}

	_, err := c.News(context.Background(), 0)
	require.NoError(t, err)
	_, err = c.News(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "differing limits still share one fetch")
}
