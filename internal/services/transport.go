package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// NewHTTPClient returns the client shared by every hosted-model call. The
// timeout bounds each attempt, so a slow attempt still leaves room for the
// retry budget.
func NewHTTPClient(attemptTimeout time.Duration, maxRetries int) *http.Client {
	return &http.Client{
		Transport: newRetryTransport(http.DefaultTransport, maxRetries, attemptTimeout),
	}
}

type retryTransport struct {
	base           http.RoundTripper
	maxRetries     int
	attemptTimeout time.Duration
	newBackOff     func() backoff.BackOff
}

func newRetryTransport(base http.RoundTripper, maxRetries int, attemptTimeout time.Duration) *retryTransport {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryTransport{
		base:           base,
		maxRetries:     maxRetries,
		attemptTimeout: attemptTimeout,
		newBackOff:     func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A body that cannot be replayed gets exactly one attempt.
	if t.maxRetries == 0 || (req.Body != nil && req.Body != http.NoBody && req.GetBody == nil) {
		return t.attempt(req, req.Body)
	}

	maxTries := uint(t.maxRetries + 1)
	var attempt uint

	operation := func() (*http.Response, error) {
		attempt++

		body := req.Body
		if attempt > 1 && req.GetBody != nil {
			rewound, err := req.GetBody()
			if err != nil {
				return nil, backoff.Permanent(fmt.Errorf("failed to rewind request body: %w", err))
			}
			body = rewound
		}

		resp, err := t.attempt(req, body)
		if err != nil {
			return nil, err
		}

		if retryableStatus(resp.StatusCode) && attempt < maxTries {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("retryable status %s", resp.Status)
		}

		return resp, nil
	}

	return backoff.Retry(req.Context(), operation,
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(maxTries),
	)
}

// attempt sends one request bounded by attemptTimeout. The deadline covers
// reading the response body and is released when the body is closed.
func (t *retryTransport) attempt(req *http.Request, body io.ReadCloser) (*http.Response, error) {
	ctx, cancel := req.Context(), context.CancelFunc(func() {})
	if t.attemptTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.attemptTimeout)
	}

	outgoing := req.Clone(ctx)
	outgoing.Body = body

	resp, err := t.base.RoundTrip(outgoing)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
