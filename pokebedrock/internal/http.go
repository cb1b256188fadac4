// Package internal holds helpers shared by the packages that talk to external HTTP services.
package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTP defaults shared by outbound clients.
const (
	// DefaultTimeout bounds a single outbound request, retries included.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryMax is the number of retries after the first attempt.
	DefaultRetryMax = 2
	// DefaultRetryWait is the fixed pause between attempts.
	DefaultRetryWait = 500 * time.Millisecond
)

// LeveledSlog adapts a slog logger to the retryablehttp logger interface. Intermediate errors are logged as
// warnings since the request is usually retried.
type LeveledSlog struct {
	Log *slog.Logger
}

// Error ...
func (l LeveledSlog) Error(msg string, keysAndValues ...any) {
	l.Log.Warn(msg, keysAndValues...)
}

// Warn ...
func (l LeveledSlog) Warn(msg string, keysAndValues ...any) {
	l.Log.Warn(msg, keysAndValues...)
}

// Info ...
func (l LeveledSlog) Info(msg string, keysAndValues ...any) {
	l.Log.Debug(msg, keysAndValues...)
}

// Debug ...
func (l LeveledSlog) Debug(msg string, keysAndValues ...any) {
	l.Log.Debug(msg, keysAndValues...)
}

// ClientConfig configures a retrying HTTP client.
type ClientConfig struct {
	Log *slog.Logger
	// RetryMax is the number of retries after the first attempt. Negative values disable retries.
	RetryMax int
	// RetryWait is the fixed pause between attempts.
	RetryWait time.Duration
	// Timeout bounds the whole request, retries included.
	Timeout time.Duration
}

// NewClient returns a standard library client backed by retryablehttp. Connection errors and 5xx responses
// are retried with a fixed backoff, every other status is returned to the caller as is.
func NewClient(c ClientConfig) *http.Client {
	if c.RetryMax == 0 {
		c.RetryMax = DefaultRetryMax
	}
	if c.RetryWait <= 0 {
		c.RetryWait = DefaultRetryWait
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = max(c.RetryMax, 0)
	retryClient.RetryWaitMin = c.RetryWait
	retryClient.RetryWaitMax = c.RetryWait
	retryClient.Backoff = func(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return c.RetryWait
	}
	retryClient.Logger = retryablehttp.LeveledLogger(LeveledSlog{Log: c.Log})
	retryClient.CheckRetry = RetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := retryClient.StandardClient()
	client.Timeout = c.Timeout
	return client
}

// RetryPolicy retries connection errors and server errors. Client errors, 429 included, are terminal.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented, nil
}
