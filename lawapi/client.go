package lawapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"lawcite-backend/config"
	"lawcite-backend/models"
)

const (
	searchDisplay = "10"
	maxBodyBytes  = 16 << 20
)

// Client is the law.go.kr DRF client. It fails closed: every failure is logged and
// reported to the caller as "not found".
type Client struct {
	oc         string
	searchURL  string
	detailURL  string
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	backoff    time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides the lawSearch.do and lawService.do URLs
func WithEndpoints(searchURL, detailURL string) ClientOption {
	return func(c *Client) {
		if searchURL != "" {
			c.searchURL = searchURL
		}
		if detailURL != "" {
			c.detailURL = detailURL
		}
	}
}

// WithTimeout bounds each request attempt
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the number of extra attempts and the initial backoff, doubled per attempt
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// NewClient creates a client authorized with the given OC id
func NewClient(oc string, opts ...ClientOption) *Client {
	defaults := config.DefaultLawConfig()
	c := &Client{
		oc:        oc,
		searchURL: config.DefaultSearchURL,
		detailURL: config.DefaultDetailURL,
		timeout:   defaults.Timeout,
		retries:   defaults.FetchRetries,
		backoff:   defaults.RetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// NewClientFromConfig creates a client from the process configuration
func NewClientFromConfig(api config.LawAPIConfig, law config.LawConfig) *Client {
	return NewClient(api.OC,
		WithEndpoints(api.SearchURL, api.DetailURL),
		WithTimeout(law.Timeout),
		WithRetries(law.FetchRetries, law.RetryBackoff),
	)
}

// SearchLaws searches statutes by keyword. Any failure yields an empty result.
func (c *Client) SearchLaws(ctx context.Context, query string) []models.LawSummary {
	params := url.Values{
		"OC":      {c.oc},
		"target":  {"law"},
		"type":    {"JSON"},
		"query":   {query},
		"display": {searchDisplay},
	}

	body, ok := c.get(ctx, c.searchURL, params)
	if !ok {
		return nil
	}

	laws, err := DecodeSearch(body)
	if err != nil {
		log.Printf("Warning: Failed to decode law search response for %q: %v", query, err)
		return nil
	}
	log.Printf("Law search %q returned %d candidates", query, len(laws))
	return laws
}

// GetLawByID fetches a statute by its stable law ID
func (c *Client) GetLawByID(ctx context.Context, lawID string) (*models.LawDetail, bool) {
	return c.getDetail(ctx, "ID", lawID)
}

// GetLawByMST fetches a statute by its version serial (법령일련번호)
func (c *Client) GetLawByMST(ctx context.Context, mst string) (*models.LawDetail, bool) {
	return c.getDetail(ctx, "MST", mst)
}

func (c *Client) getDetail(ctx context.Context, key, value string) (*models.LawDetail, bool) {
	if value == "" {
		return nil, false
	}

	params := url.Values{
		"OC":     {c.oc},
		"target": {"law"},
		"type":   {"JSON"},
		key:      {value},
	}

	body, ok := c.get(ctx, c.detailURL, params)
	if !ok {
		return nil, false
	}

	st, err := DecodeDetail(body)
	if err != nil {
		log.Printf("Warning: Failed to decode law detail %s=%s: %v", key, value, err)
		return nil, false
	}
	return &models.LawDetail{Statute: st, Raw: body}, true
}

// get performs the request with bounded retry. 4xx responses and malformed bodies are not retried.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, bool) {
	attempts := c.retries + 1
	backoff := c.backoff

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				log.Printf("Warning: Law API request to %s cancelled: %v", endpoint, ctx.Err())
				return nil, false
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, retryable, err := c.do(ctx, endpoint, params)
		if err == nil {
			return body, true
		}

		log.Printf("Warning: Law API request to %s failed (attempt %d/%d): %v", endpoint, attempt+1, attempts, err)
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return nil, false
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	// law.go.kr answers some authorization failures with an HTML page and status 200
	if !json.Valid(body) {
		return nil, false, fmt.Errorf("%w: response is not JSON", ErrMalformedPayload)
	}
	return body, false, nil
}
