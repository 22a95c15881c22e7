// Package pos is a minimal HTTP client for the point-of-sale platform that
// owns the catalog, inventory counts, and orders. The sync engine pulls from
// it during full refresh and reconciliation; webhooks push the same data in
// near real time.
package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	catalogPageLimit = 100
	orderPageLimit   = 100
)

// Client talks to the POS REST API with a bearer token. All amounts in
// responses are integer minor units.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	locationID  string
	debug       bool
}

// NewClient constructs a POS client with sane defaults.
func NewClient(baseURL, accessToken, locationID string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		accessToken: accessToken,
		locationID:  locationID,
		debug:       os.Getenv("ENV") == "development",
	}
}

// ListCatalogItems returns one page of catalog items. Pass an empty cursor
// for the first page; a returned empty cursor means the listing is done.
func (c *Client) ListCatalogItems(ctx context.Context, cursor string) (*CatalogPage, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", catalogPageLimit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page CatalogPage
	if err := c.doRequest(ctx, http.MethodGet, "/v1/catalog/items", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// BatchInventoryCounts returns the current counted quantity for each of the
// given item IDs at the configured location. Items the POS does not track
// are absent from the result.
func (c *Client) BatchInventoryCounts(ctx context.Context, itemIDs []string) ([]InventoryCount, error) {
	req := BatchInventoryCountsRequest{
		LocationID: c.locationID,
		ItemIDs:    itemIDs,
	}

	var resp InventoryCountsResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/inventory/batch-retrieve", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// ListOrders returns all orders updated at or after since, following the
// cursor until the POS reports no more pages.
func (c *Client) ListOrders(ctx context.Context, since time.Time) ([]Order, error) {
	var (
		orders []Order
		cursor string
	)
	for {
		req := SearchOrdersRequest{
			LocationID:     c.locationID,
			UpdatedAtAfter: since.UTC(),
			Cursor:         cursor,
			Limit:          orderPageLimit,
		}

		var page OrderPage
		if err := c.doRequest(ctx, http.MethodPost, "/v1/orders/search", nil, req, &page); err != nil {
			return nil, err
		}
		orders = append(orders, page.Orders...)

		if page.Cursor == "" {
			return orders, nil
		}
		cursor = page.Cursor
	}
}

// doRequest performs an HTTP call against the POS API and decodes the JSON
// response into result. Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, body any, result any) error {
	var reqBody io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	// Debug logging for development
	if c.debug {
		ev := log.Debug().Str("method", method).Str("endpoint", fullURL)
		if payload != nil {
			ev = ev.RawJSON("request", payload)
		}
		ev.Msg("[POS] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
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
			Msg("[POS] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
