package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// DecodeJSON performs an HTTP GET against url with the given bearer token
// (empty means no Authorization header), decodes a successful body into out,
// and translates non-2xx responses and decode failures into the shared
// tbcore error kinds so every adapter reports failures uniformly.
//
// A 404 becomes tbcore.ErrNotFound. A 429 or any 5xx becomes
// ErrProviderUnavailable with RetryAfter populated from the header when
// present, as does a request that fails to send. Any other non-2xx, or a
// JSON decode failure, becomes ErrProviderMalformed. The body is decoded
// into out as-is; no envelope (data, results, ...) is unwrapped here.
func DecodeJSON(ctx context.Context, client *http.Client, provider tbcore.ProviderId, url, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &tbcore.ErrProviderMalformed{Provider: provider, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &tbcore.ErrProviderUnavailable{Provider: provider, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return tbcore.ErrNotFound
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &tbcore.ErrProviderUnavailable{
			Provider:   provider,
			Cause:      fmt.Errorf("unexpected status %d", resp.StatusCode),
			RetryAfter: retryAfter(resp),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &tbcore.ErrProviderMalformed{
			Provider: provider,
			Cause:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &tbcore.ErrProviderMalformed{Provider: provider, Cause: err}
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
	}
	return 0
}
