// Package torn is the client for the upstream Torn API. It owns the single
// rate limiter shared by every workflow in the process, so the background
// scanner and live searches drain one request budget.
package torn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"torn-bazaar-api/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is an error payload returned by the Torn API itself (wrong key,
// private bazaar, unknown player). These are terminal: retrying the same
// request cannot succeed.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("torn api error %d: %s", e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	RequestDelay time.Duration
	MaxRetries   int
	HTTPClient   HTTPClient
}

// Client fetches seller bazaars from the Torn API. All calls wait on a
// shared limiter before hitting the network; the minimum spacing between
// calls is the process-wide concurrency control against the upstream
// request budget.
type Client struct {
	client     HTTPClient
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries uint64
	backoff    time.Duration
}

// NewClient creates a Torn API client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	delay := opts.RequestDelay
	if delay <= 0 {
		delay = 750 * time.Millisecond
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		client:     httpClient,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		maxRetries: uint64(retries),
		backoff:    500 * time.Millisecond,
	}
}

type bazaarResponse struct {
	Name   string             `json:"name"`
	Bazaar []model.BazaarItem `json:"bazaar"`
	Error  *APIError          `json:"error"`
}

// FetchBazaar returns the full current bazaar of one seller. Transport
// failures are retried with exponential backoff up to the configured count;
// API-level errors are returned as *APIError without retrying. The caller
// decides disposition: this method applies no persistence or skip policy.
func (c *Client) FetchBazaar(ctx context.Context, playerID int64) (*model.BazaarSnapshot, error) {
	url := fmt.Sprintf("%s/user/%d?selections=bazaar&key=%s", c.baseURL, playerID, c.apiKey)

	var decoded bazaarResponse
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		decoded = bazaarResponse{}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.getJSON(ctx, url, &decoded); err != nil {
			return retry.RetryableError(err)
		}
		if decoded.Error != nil {
			return decoded.Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bazaar for player %d: %w", playerID, err)
	}

	return &model.BazaarSnapshot{
		PlayerID:   playerID,
		PlayerName: decoded.Name,
		Items:      decoded.Bazaar,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
