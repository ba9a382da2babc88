// Package news fetches headlines from the keyword-search news collaborator.
// The news panel is fully optional: every failure here is recoverable and
// must never crash a refresh.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/casewatch/internal/httputil"
	"github.com/lox/casewatch/internal/metrics"
	"github.com/lox/casewatch/internal/models"
)

// ErrNewsUnavailable means the news endpoint could not be reached or returned
// garbage. The dashboard renders an empty panel.
var ErrNewsUnavailable = errors.New("news unavailable")

const defaultEndpoint = "https://newsapi.org/v2/everything"

type Client struct {
	apiKey   string
	query    string
	language string
	endpoint string
	client   *http.Client
}

func NewClient(apiKey, query string) *Client {
	return &Client{
		apiKey:   apiKey,
		query:    query,
		language: "en",
		endpoint: defaultEndpoint,
		client:   httputil.NewClient(),
	}
}

type searchResponse struct {
	Articles []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"articles"`
}

// Latest returns up to max headlines sorted by relevancy.
func (c *Client) Latest(ctx context.Context, max int) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("q", c.query)
	params.Set("language", c.language)
	params.Set("sortBy", "relevancy")

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch news: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("retryable: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch news: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.NewsFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrNewsUnavailable, err)
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.NewsFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrNewsUnavailable, err)
	}

	items := make([]models.NewsItem, 0, max)
	for _, a := range data.Articles {
		if len(items) == max {
			break
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		items = append(items, models.NewsItem{Title: a.Title, URL: a.URL})
	}

	metrics.NewsFetchesTotal.WithLabelValues("ok").Inc()
	return items, nil
}
