// Package transport builds the shared HTTP clients every Provider Lookup
// and Token Source uses: exponential backoff with jitter and Retry-After
// honoring, per-attempt and total timeouts, and explicit HTTP/2 transport
// configuration.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/net/http2"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Policy describes the retry/backoff envelope wrapped around an
// *http.Client's transport.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	PerAttempt   time.Duration
	TotalTimeout time.Duration
}

// DefaultPolicy is tuned for a third-party catalog API: a handful of quick
// retries rather than a long tail, since the Aggregator is itself fanning
// out to several providers per request and a slow retry chain on one blocks
// the caller's whole batch.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		BaseDelay:    200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		PerAttempt:   8 * time.Second,
		TotalTimeout: 20 * time.Second,
	}
}

// NewClient builds an *http.Client whose Transport is configured for
// HTTP/2 and whose RoundTripper retries transient failures per policy.
// Redirects are followed normally — callers needing short-link resolution
// should use NewRedirectDisabledClient instead.
func NewClient(policy Policy, logger *slog.Logger) *http.Client {
	base := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(base); err != nil {
		logger.Warn("http2 configuration failed, continuing over http/1.1", "error", err)
	}

	return &http.Client{
		Timeout:   policy.TotalTimeout,
		Transport: &retryingRoundTripper{policy: policy, next: base, logger: logger},
	}
}

// NewRedirectDisabledClient builds a client identical to NewClient except
// CheckRedirect returns http.ErrUseLastResponse, so Link Parsers doing
// short-link resolution can read the Location header instead of the
// client silently following it.
func NewRedirectDisabledClient(policy Policy, logger *slog.Logger) *http.Client {
	c := NewClient(policy, logger)
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

type retryingRoundTripper struct {
	policy Policy
	next   http.RoundTripper
	logger *slog.Logger
}

func (rt *retryingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
	}

	backoff := retry.NewExponential(rt.policy.BaseDelay)
	backoff = retry.WithMaxRetries(uint64(rt.policy.MaxAttempts-1), backoff)
	backoff = retry.WithCappedDuration(rt.policy.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(20, backoff)

	var resp *http.Response
	err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
		attempt := req.Clone(ctx)
		if bodyBytes != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, rt.policy.PerAttempt)
		defer cancel()
		attempt = attempt.WithContext(attemptCtx)

		r, rtErr := rt.next.RoundTrip(attempt)
		if rtErr != nil {
			return retry.RetryableError(rtErr)
		}

		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			if wait := retryAfterDelay(r); wait > 0 {
				_ = r.Body.Close()
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
				return retry.RetryableError(errors.New("rate limited, honored Retry-After"))
			}
			_ = r.Body.Close()
			return retry.RetryableError(errors.New("server error"))
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func retryAfterDelay(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// ProviderClients bundles the two clients a provider adapter needs: a
// normal retrying client for catalog API calls, and a redirect-disabled
// client for Link Parser short-link resolution.
type ProviderClients struct {
	API      *http.Client
	Redirect *http.Client
}

// NewProviderClients builds both clients for provider, sharing one policy.
func NewProviderClients(provider tbcore.ProviderId, logger *slog.Logger) ProviderClients {
	policy := DefaultPolicy()
	l := logger.With(slog.String("provider", string(provider)))
	return ProviderClients{
		API:      NewClient(policy, l),
		Redirect: NewRedirectDisabledClient(policy, l),
	}
}
