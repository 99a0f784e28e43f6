// Package gateway fronts the matches and weather services. It spreads calls
// over service replicas, isolates every command behind its own circuit
// breaker and composes the "weather for matches" views.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/neexbeast/match-weather/internal/apperr"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultTripAfter = 5
	maxBodyBytes     = 8 << 20
)

var (
	errServerStatus = errors.New("service answered with a server error")
	errCallerGone   = errors.New("caller context done")
)

// Response is a service reply passed back verbatim by forwarding routes.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// BackendConfig describes one downstream service.
type BackendConfig struct {
	Name       string
	Replicas   []string
	HTTPClient *http.Client
	Timeout    time.Duration
	// TripAfter is the number of consecutive failures that opens a command's breaker.
	TripAfter uint32
	OpenFor   time.Duration
}

// Backend is one downstream service reached through a Balancer.
type Backend struct {
	name      string
	balancer  *Balancer
	http      *http.Client
	timeout   time.Duration
	tripAfter uint32
	openFor   time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBackend constructs a Backend, filling unset fields with defaults.
func NewBackend(cfg BackendConfig, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	balancer, err := NewBalancer(cfg.Replicas)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Name, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	tripAfter := cfg.TripAfter
	if tripAfter == 0 {
		tripAfter = defaultTripAfter
	}

	return &Backend{
		name:      cfg.Name,
		balancer:  balancer,
		http:      httpClient,
		timeout:   timeout,
		tripAfter: tripAfter,
		openFor:   cfg.OpenFor,
		log:       log,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

// Name returns the service name.
func (b *Backend) Name() string { return b.name }

// breaker returns the breaker for command, creating it on first use.
func (b *Backend) breaker(command string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[command]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    b.name + "." + command,
		Timeout: b.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.tripAfter
		},
		// A request its caller abandoned says nothing about the service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn("gateway breaker state change", "command", name, "from", from.String(), "to", to.String())
		},
	})
	b.breakers[command] = cb
	return cb
}

// Get calls path on the next replica under command's breaker. Any answer
// the service gives, including 4xx and 5xx, is returned as a Response; only
// transport failures and an open breaker are errors.
func (b *Backend) Get(ctx context.Context, command, path string, query url.Values) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	endpoint := b.balancer.Next() + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	out, err := b.breaker(command).Execute(func() (any, error) {
		resp, err := b.do(callCtx, endpoint)
		if err != nil && resp == nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return resp, err
	})
	switch {
	case err == nil:
		return out.(*Response), nil
	case errors.Is(err, errServerStatus):
		return out.(*Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, apperr.Wrap(apperr.KindRemoteUnavailable, err, "%s.%s circuit open", b.name, command)
	default:
		return nil, apperr.Wrap(apperr.KindRemoteUnavailable, err, "%s.%s", b.name, command)
	}
}

func (b *Backend) do(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", endpoint, err)
	}

	out := &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if resp.StatusCode >= 500 {
		return out, fmt.Errorf("%w: %s returned %d", errServerStatus, endpoint, resp.StatusCode)
	}
	return out, nil
}

// Ping checks the next replica's liveness endpoint.
func (b *Backend) Ping(ctx context.Context) error {
	resp, err := b.Get(ctx, "status", "/status", nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("%s status returned %d", b.name, resp.Status)
	}
	return nil
}
