// Package discogs is a read-only client for the Discogs database API, used
// to enrich catalog items with release metadata. Discogs enforces a strict
// per-minute quota, so every call is funneled through a shared rate limiter
// and excess calls queue instead of failing.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/ratelimit"
)

// Client talks to the Discogs API. Discogs requires a descriptive
// User-Agent on every request and rejects anonymous traffic at a lower
// quota, so both are set up front.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	limiter    *ratelimit.Limiter
	debug      bool
}

// NewClient constructs a Discogs client. All calls pace through limiter.
func NewClient(baseURL, token, userAgent string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
		userAgent:  userAgent,
		limiter:    limiter,
		debug:      os.Getenv("ENV") == "development",
	}
}

// Search looks up releases matching the query, most relevant first.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "release")
	q.Set("per_page", "5")

	var results []SearchResult
	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		var resp SearchResponse
		if err := c.doRequest(ctx, "/database/search", q, &resp); err != nil {
			return err
		}
		results = resp.Results
		return nil
	})
	return results, err
}

// GetRelease fetches full metadata for one release.
func (c *Client) GetRelease(ctx context.Context, id int64) (*Release, error) {
	var release Release
	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		return c.doRequest(ctx, "/releases/"+strconv.FormatInt(id, 10), nil, &release)
	})
	if err != nil {
		return nil, err
	}
	return &release, nil
}

// doRequest performs a GET against the Discogs API and decodes the JSON
// response into result. Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	// Debug logging for development
	if c.debug {
		log.Debug().Str("endpoint", fullURL).Msg("[DISCOGS] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Debug logging for development
	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			RawJSON("response", respBody).
			Msg("[DISCOGS] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
