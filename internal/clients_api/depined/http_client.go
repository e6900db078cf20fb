package depined

// Client for the Depined rewards API.
// One Client per bearer token: each account gets its own http.Client,
// rate limiter and optional circuit breaker, so accounts never throttle each other.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"depined-bot/internal/infra/log"
	"depined-bot/internal/infra/metrics"
	"depined-bot/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	RateLimit       float64
	RateBurst       int
	BreakerFailures uint32 // 0 disables the breaker
	BreakerTimeout  time.Duration
	MaxResponseSize int64
	HTTPClient      *http.Client
}

type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOpts       retry.Options
	maxResponseSize int64
}

// NewClient builds an authenticated client for one token.
func NewClient(token string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = MainnetAPI
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = 10 * 1024 * 1024
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: false,
				MaxIdleConns:      4,
				IdleConnTimeout:   90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		token:          token,
		httpClient:     httpClient,
		rateLimiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		circuitBreaker: newBreaker(token, opts.BreakerFailures, opts.BreakerTimeout),
		retryOpts: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		maxResponseSize: opts.MaxResponseSize,
	}
}

// newBreaker returns nil when failures is 0 (breaker disabled).
func newBreaker(token string, failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	if failures == 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "depined:" + shortToken(token),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerStateChanges.WithLabelValues(to.String()).Inc()
			log.LogWarn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// MakeRequest sends one API call through the limiter, breaker and retry policy.
func (c *Client) MakeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	start := time.Now()
	send := func() (interface{}, error) {
		var respBody []byte
		err := retry.Do(ctx, c.retryOpts, func() error {
			b, err := c.do(ctx, method, endpoint, body)
			if err != nil {
				return err
			}
			respBody = b
			return nil
		})
		return respBody, err
	}

	var result interface{}
	var err error
	if c.circuitBreaker != nil {
		result, err = c.circuitBreaker.Execute(send)
	} else {
		result, err = send()
	}
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.RequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	return result.([]byte), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, c.token)

	log.LogRequest(requestID, method, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return respBody, nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
}

// GetUserDetails fetches the account profile.
func (c *Client) GetUserDetails(ctx context.Context) (*UserDetails, error) {
	respBody, err := c.MakeRequest(ctx, http.MethodGet, EndpointUserDetails, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get user details: %w", err)
	}

	var resp UserDetailsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user details: %w", err)
	}
	return &resp.Data, nil
}

// ConnectWidget posts the "connected" heartbeat. Only the status code matters.
func (c *Client) ConnectWidget(ctx context.Context) error {
	if _, err := c.MakeRequest(ctx, http.MethodPost, EndpointWidgetConnect, WidgetConnectRequest{Connected: true}); err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}
	return nil
}

// GetEpochEarnings fetches earnings for the current epoch.
func (c *Client) GetEpochEarnings(ctx context.Context) (*EpochEarnings, error) {
	respBody, err := c.MakeRequest(ctx, http.MethodGet, EndpointEpochEarnings, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get epoch earnings: %w", err)
	}

	var resp EpochEarningsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal epoch earnings: %w", err)
	}
	return &resp.Data, nil
}

func shortToken(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10]
}
