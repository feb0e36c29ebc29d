package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every outbound registry call.
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// client holds what every checker needs to talk to a registry.
type client struct {
	http    *http.Client
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	// sleep waits between retries; tests replace it.
	sleep      func(ctx context.Context, d time.Duration) error
	retryDelay time.Duration
}

// Option configures a checker.
type Option func(*client)

// WithHTTPClient sets the HTTP client used for registry calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *client) {
		cl.logger = logger
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(cl *client) {
		cl.now = now
	}
}

// WithRetryDelay overrides the pause between retried calls.
func WithRetryDelay(d time.Duration) Option {
	return func(cl *client) {
		cl.retryDelay = d
	}
}

func newClient(opts []Option) client {
	cl := client{
		http:       &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
		timeout:    DefaultTimeout,
		now:        time.Now,
		sleep:      sleepContext,
		retryDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&cl)
	}
	return cl
}

// do sends req with the per-call timeout and returns the status and body.
func (c client) do(ctx context.Context, req *http.Request) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp, nil, err
	}
	return resp, body, nil
}

// transportError categorizes a failed round trip.
func transportError(src Source, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewError(ErrorTimeout, src, "request timed out", err)
	}
	return NewError(ErrorProviderOutage, src, "request failed", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
