// Package upstream is the outbound HTTP client shared by every provider.
// Calls carry the RapidAPI key/host header pair, retry transient failures with
// exponential backoff and run behind a per-upstream circuit breaker.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/match-weather/internal/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTimeout        = 10 * time.Second
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxBackoff     = 4 * time.Second
	defaultTripAfter      = 5
	maxBodyBytes          = 4 << 20
)

var (
	errTransient    = errors.New("transient upstream failure")
	errClientStatus = errors.New("upstream rejected request")
)

// Config describes one upstream host.
type Config struct {
	Name    string // breaker and log name
	BaseURL string
	Host    string // sent as X-RapidAPI-Host
	APIKey  string // sent as X-RapidAPI-Key

	HTTPClient     *http.Client
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// TripAfter is the number of consecutive failures that opens the breaker.
	TripAfter uint32
	// OpenFor is how long the breaker stays open before probing again.
	OpenFor time.Duration
}

// Client issues GET requests against a single upstream.
type Client struct {
	name           string
	baseURL        string
	host           string
	apiKey         string
	http           *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	callBudget     time.Duration
	breaker        *gobreaker.CircuitBreaker
	flight         singleflight.Group
	log            *slog.Logger
}

// New constructs a Client, filling unset fields with defaults.
func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	} else if httpClient.Timeout > 0 {
		timeout = httpClient.Timeout
	}

	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	tripAfter := cfg.TripAfter
	if tripAfter == 0 {
		tripAfter = defaultTripAfter
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Host
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		// 4xx other than 429 means our request was wrong, not that the upstream is sick.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClientStatus)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("upstream breaker state change", "upstream", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		name:           name,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		host:           cfg.Host,
		apiKey:         cfg.APIKey,
		http:           httpClient,
		maxRetries:     retries,
		initialBackoff: initial,
		maxBackoff:     maxBackoff,
		callBudget:     time.Duration(retries+1)*timeout + time.Duration(retries)*maxBackoff,
		breaker:        breaker,
		log:            log,
	}
}

// Name returns the upstream name.
func (c *Client) Name() string { return c.name }

// GetJSON performs GET baseURL+path?query and decodes the body into dst.
// Failures are classified as RemoteUnavailable or MalformedResponse.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dst any) error {
	raw, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Wrap(apperr.KindMalformedResponse, err, "decoding %s response from %s", c.name, path)
	}
	return nil
}

// Get performs GET baseURL+path?query and returns the raw 2xx body.
// Identical concurrent requests share one outbound call. The shared call is
// detached from any single caller's cancellation and bounded by the client's
// retry budget; each caller stops waiting when its own ctx is done.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	ch := c.flight.DoChan(endpoint, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callBudget)
		defer cancel()
		return c.getWithRetry(callCtx, endpoint)
	})

	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.KindRemoteUnavailable, ctx.Err(), "GET %s", endpoint)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.log.Warn("retrying upstream request", "upstream", c.name, "attempt", attempt, "delay", delay, "err", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, apperr.Wrap(apperr.KindRemoteUnavailable, ctx.Err(), "GET %s", endpoint)
			case <-timer.C:
			}
		}

		out, err := c.breaker.Execute(func() (any, error) {
			return c.do(ctx, endpoint)
		})
		if err == nil {
			return out.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Wrap(apperr.KindRemoteUnavailable, err, "%s circuit open", c.name)
		}
		lastErr = err
		if !errors.Is(err, errTransient) || ctx.Err() != nil {
			break
		}
	}
	return nil, apperr.Wrap(apperr.KindRemoteUnavailable, lastErr, "GET %s", endpoint)
}

// do runs one attempt.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.host != "" {
		req.Header.Set("X-RapidAPI-Host", c.host)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errTransient, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", errClientStatus, resp.StatusCode, abbreviate(body))
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.initialBackoff << attempt
	if delay <= 0 || delay > c.maxBackoff {
		return c.maxBackoff
	}
	return delay
}

func abbreviate(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
