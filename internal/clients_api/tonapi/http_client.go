package tonapi

// Package tonapi contains the client for the TonAPI REST service.
// This file contains the base HTTP client - handles all HTTP requests to API
// Acts as transport layer - doesn't know business logic, just sends requests and receives responses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBase - URL for public TonAPI (production)
const DefaultBase = "https://tonapi.io"

// Client stores everything needed for API work: base URL, HTTP client and key.
type Client struct {
	baseURL         string
	apiKey          string                    // Bearer key, optional for low request rates
	httpClient      *http.Client              // HTTP client for requests
	rateLimiter     *rate.Limiter             // Rate limiter for request frequency limiting
	circuitBreaker  *gobreaker.CircuitBreaker // Circuit breaker for error avalanche protection
	maxResponseSize int64                     // Maximum response size in bytes
	retryOpts       retry.Options
}

// Options tunes the client; zero values fall back to defaults.
type Options struct {
	Base            string
	APIKey          string
	RequestTimeout  time.Duration
	MaxRetries      int
	MaxResponseSize int64
}

// NewClient is a constructor function
// Creates and returns new Client object ready to use
func NewClient(opts Options) *Client {
	baseURL := opts.Base
	if baseURL == "" {
		baseURL = DefaultBase
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	maxSize := opts.MaxResponseSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024 // 10MB default
	}

	// Create rate limiter: 10 requests per second, burst up to 20
	rateLimiter := rate.NewLimiter(rate.Limit(10), 20)

	// Create circuit breaker for error avalanche protection
	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TonAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:         baseURL,
		apiKey:          opts.APIKey,
		rateLimiter:     rateLimiter,
		circuitBreaker:  circuitBreaker,
		maxResponseSize: maxSize,
		retryOpts: retry.Options{
			MaxRetries: maxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}
}

// MakeRequest performs a GET request with rate limiting, circuit breaker and retries.
// endpoint - API path starting with "/" ("/v2/traces/abc")
func (c *Client) MakeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	var respBody []byte
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		body, err := c.doRequest(ctx, requestID, endpoint, startTime)
		if err != nil {
			return nil, err
		}
		respBody = body
		return body, nil
	})
	if err != nil {
		log.LogError("TonAPI request failed", zap.String("request_id", requestID), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}

	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, requestID, endpoint string, startTime time.Time) ([]byte, error) {
	var respBody []byte
	err := retry.Do(ctx, c.retryOpts, func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		log.LogRequest(requestID, "GET", endpoint, zap.String("url", req.URL.String()))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer resp.Body.Close()

		limitedReader := io.LimitReader(resp.Body, c.maxResponseSize)
		body, err := io.ReadAll(limitedReader)
		if err != nil {
			log.LogResponse(requestID, resp.StatusCode, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
			return fmt.Errorf("failed to read response: %w", err)
		}

		duration := time.Since(startTime).Milliseconds()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.String("error", "API error response received"))
			return &retry.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       body,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.String("status", "success"))
		respBody = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// GetAccountTransactions returns the newest transactions of an account,
// newest first as TonAPI delivers them.
func (c *Client) GetAccountTransactions(ctx context.Context, account string, limit int) ([]Transaction, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("/v2/blockchain/accounts/%s/transactions", url.PathEscape(account))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	respBody, err := c.MakeRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get account transactions: %w", err)
	}

	var txResp TransactionsResponse
	if err := json.Unmarshal(respBody, &txResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions response: %w", err)
	}

	return txResp.Transactions, nil
}

// GetTrace fetches the full trace tree for a transaction.
// Returns the raw document because swap payload shapes differ between DEXes.
func (c *Client) GetTrace(ctx context.Context, traceID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/v2/traces/%s", url.PathEscape(traceID))

	respBody, err := c.MakeRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}

	return json.RawMessage(respBody), nil
}

// GetJetton fetches jetton master metadata (symbol, name, decimals).
func (c *Client) GetJetton(ctx context.Context, jettonAddress string) (*JettonInfo, error) {
	endpoint := fmt.Sprintf("/v2/jettons/%s", url.PathEscape(jettonAddress))

	respBody, err := c.MakeRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get jetton: %w", err)
	}

	var info JettonInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal jetton response: %w", err)
	}

	return &info, nil
}

// GetTONRateUSD returns the current TON/USD rate.
func (c *Client) GetTONRateUSD(ctx context.Context) (float64, error) {
	respBody, err := c.MakeRequest(ctx, "/v2/rates?tokens=ton&currencies=usd")
	if err != nil {
		return 0, fmt.Errorf("failed to get rates: %w", err)
	}

	var ratesResp RatesResponse
	if err := json.Unmarshal(respBody, &ratesResp); err != nil {
		return 0, fmt.Errorf("failed to unmarshal rates response: %w", err)
	}

	ton, ok := ratesResp.Rates["TON"]
	if !ok {
		return 0, fmt.Errorf("rates response missing TON entry")
	}
	usd, ok := ton.Prices["USD"]
	if !ok {
		return 0, fmt.Errorf("rates response missing USD price")
	}
	return usd, nil
}
