package dexscreener

// HTTP client for the public DexScreener API.
// Sends GET requests with the common retry mechanism; the API needs no auth.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"spyton-bot/internal/infra/retry"
)

const DefaultBase = "https://api.dexscreener.com"

var dexscreenerRetry = retry.Options{
	MaxRetries: 3,
	BaseDelay:  300 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBase
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) doGET(ctx context.Context, endpoint string) ([]byte, error) {
	var respBody []byte
	err := retry.Do(ctx, dexscreenerRetry, func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		respBody = body

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &retry.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       body,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener GET failed: %w", err)
	}
	return respBody, nil
}

// GetTokenPairs returns all TON pairs trading the given jetton.
func (c *Client) GetTokenPairs(ctx context.Context, jettonAddress string) ([]Pair, error) {
	endpoint := fmt.Sprintf("/token-pairs/v1/ton/%s", url.PathEscape(jettonAddress))

	respBody, err := c.doGET(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// This endpoint returns a bare array.
	var pairs []Pair
	if err := json.Unmarshal(respBody, &pairs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token pairs: %w", err)
	}
	return pairs, nil
}

// GetTokenLatest is the legacy lookup kept as a fallback for tokens the
// token-pairs endpoint does not know yet.
func (c *Client) GetTokenLatest(ctx context.Context, jettonAddress string) ([]Pair, error) {
	endpoint := fmt.Sprintf("/latest/dex/tokens/%s", url.PathEscape(jettonAddress))

	respBody, err := c.doGET(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp tokensResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest tokens: %w", err)
	}
	return resp.Pairs, nil
}

// FetchPairs tries the token-pairs endpoint first and falls back to the
// legacy one when it returns nothing.
func (c *Client) FetchPairs(ctx context.Context, jettonAddress string) ([]Pair, error) {
	pairs, err := c.GetTokenPairs(ctx, jettonAddress)
	if err == nil && len(pairs) > 0 {
		return pairs, nil
	}
	return c.GetTokenLatest(ctx, jettonAddress)
}

type tokensResponse struct {
	Pairs []Pair `json:"pairs"`
}
