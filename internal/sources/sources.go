package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/cache"
)

const (
	defaultFearGreedURL = "https://api.alternative.me/fng/?limit=1"
	defaultTreasuryURL  = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service/v1/accounting/od/auctions_query"
)

var defaultFeeds = []string{
	"https://finance.yahoo.com/news/rssindex",
	"https://cointelegraph.com/rss",
	"https://www.marketwatch.com/rss/topstories",
}

// FearGreed is the crypto Fear & Greed index reading.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
	Timestamp      string `json:"timestamp"`
}

// TreasuryAuction is the latest 10-Year note auction result.
type TreasuryAuction struct {
	BidToCover  float64 `json:"bid_to_cover"`
	AuctionDate string  `json:"auction_date"`
}

// Article is one news headline.
type Article struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	Link      string `json:"url"`
	Published string `json:"publishedAt"`
}

// Client fetches upstream data feeds. Every fetch runs through the
// memoizer, so dashboards sharing a feed within the TTL window share one
// upstream call.
type Client struct {
	memo *cache.Memoizer
	http *http.Client

	// Overridable for tests and self-hosted mirrors.
	FearGreedURL string
	TreasuryURL  string
	Feeds        []string

	FearGreedTTL time.Duration
	TreasuryTTL  time.Duration
	NewsTTL      time.Duration
}

func NewClient(memo *cache.Memoizer, httpClient *http.Client) *Client {
	return &Client{
		memo:         memo,
		http:         httpClient,
		FearGreedURL: defaultFearGreedURL,
		TreasuryURL:  defaultTreasuryURL,
		Feeds:        defaultFeeds,
		FearGreedTTL: 15 * time.Minute,
		TreasuryTTL:  5 * time.Minute,
		NewsTTL:      10 * time.Minute,
	}
}

// FearGreed returns the current index value.
func (c *Client) FearGreed(ctx context.Context) (FearGreed, error) {
	value, err := c.memo.Do(ctx, "fng", c.FearGreedTTL, func(ctx context.Context) (interface{}, error) {
		return c.fetchFearGreed(ctx)
	})
	if err != nil {
		return FearGreed{}, err
	}
	return value.(FearGreed), nil
}

func (c *Client) fetchFearGreed(ctx context.Context) (FearGreed, error) {
	body, err := c.get(ctx, c.FearGreedURL)
	if err != nil {
		return FearGreed{}, err
	}
	var payload struct {
		Data []struct {
			Value               string `json:"value"`
			ValueClassification string `json:"value_classification"`
			Timestamp           string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return FearGreed{}, err
	}
	if len(payload.Data) == 0 {
		return FearGreed{}, fmt.Errorf("fng: empty data")
	}
	value, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		return FearGreed{}, fmt.Errorf("fng: bad value %q", payload.Data[0].Value)
	}
	return FearGreed{
		Value:          value,
		Classification: payload.Data[0].ValueClassification,
		Timestamp:      payload.Data[0].Timestamp,
	}, nil
}

// TreasuryAuction returns the latest 10-Year note bid-to-cover ratio.
func (c *Client) TreasuryAuction(ctx context.Context) (TreasuryAuction, error) {
	value, err := c.memo.Do(ctx, "treasury_10y", c.TreasuryTTL, func(ctx context.Context) (interface{}, error) {
		return c.fetchTreasuryAuction(ctx)
	})
	if err != nil {
		return TreasuryAuction{}, err
	}
	return value.(TreasuryAuction), nil
}

func (c *Client) fetchTreasuryAuction(ctx context.Context) (TreasuryAuction, error) {
	params := url.Values{}
	params.Set("filter", "security_term:eq:10-Year,security_type:eq:Note")
	params.Set("sort", "-auction_date")
	params.Set("page[size]", "1")

	body, err := c.get(ctx, c.TreasuryURL+"?"+params.Encode())
	if err != nil {
		return TreasuryAuction{}, err
	}
	var payload struct {
		Data []struct {
			BidToCoverRatio string `json:"bid_to_cover_ratio"`
			AuctionDate     string `json:"auction_date"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return TreasuryAuction{}, err
	}
	if len(payload.Data) == 0 {
		return TreasuryAuction{}, fmt.Errorf("treasury: empty data")
	}
	ratio, err := strconv.ParseFloat(payload.Data[0].BidToCoverRatio, 64)
	if err != nil {
		return TreasuryAuction{}, fmt.Errorf("treasury: bad ratio %q", payload.Data[0].BidToCoverRatio)
	}
	return TreasuryAuction{BidToCover: ratio, AuctionDate: payload.Data[0].AuctionDate}, nil
}

// News returns up to limit headlines across the configured feeds. A feed
// that fails is skipped, not fatal; News only errors when every feed
// failed.
func (c *Client) News(ctx context.Context, limit int) ([]Article, error) {
	value, err := c.memo.Do(ctx, "rss_news", c.NewsTTL, func(ctx context.Context) (interface{}, error) {
		return c.fetchNews(ctx)
	})
	if err != nil {
		return nil, err
	}
	articles := value.([]Article)
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

func (c *Client) fetchNews(ctx context.Context) ([]Article, error) {
	var articles []Article
	var lastErr error
	for _, feed := range c.Feeds {
		body, err := c.get(ctx, feed)
		if err != nil {
			lastErr = err
			continue
		}
		var doc rssDocument
		if err := xml.Unmarshal(body, &doc); err != nil {
			lastErr = err
			continue
		}
		items := doc.Channel.Items
		if len(items) > 5 {
			items = items[:5]
		}
		for _, item := range items {
			articles = append(articles, Article{
				Title:     item.Title,
				Source:    doc.Channel.Title,
				Link:      item.Link,
				Published: item.PubDate,
			})
		}
	}
	if len(articles) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return articles, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
