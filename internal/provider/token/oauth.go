package token

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// OAuthSource wraps an x/oauth2 client-credentials TokenSource, adding the
// single-flight dedup the core requires so N concurrent Aggregator
// goroutines calling the same provider never race N separate token mints.
type OAuthSource struct {
	provider tbcore.ProviderId
	src      oauth2.TokenSource

	mu    sync.Mutex
	group singleflight.Group
}

// NewOAuthSource builds a client-credentials Token Source for provider,
// posting to tokenURL with clientId/clientSecret. httpClient, if non-nil,
// is used for the token-minting requests (the shared Transport Policy
// client, so retries and timeouts apply there too).
func NewOAuthSource(provider tbcore.ProviderId, clientId, clientSecret, tokenURL string, httpClient *http.Client) (*OAuthSource, error) {
	if clientId == "" || clientSecret == "" {
		return nil, &tbcore.ErrAuthConfigInvalid{
			Provider: provider,
			Cause:    fmt.Errorf("client id and client secret are both required"),
		}
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	return &OAuthSource{
		provider: provider,
		src:      cfg.TokenSource(ctx),
	}, nil
}

// Token returns a valid bearer token, minting or refreshing it if the
// underlying oauth2.TokenSource's cached token has expired. Concurrent
// callers share one in-flight refresh.
func (s *OAuthSource) Token(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("token", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		tok, err := s.src.Token()
		if err != nil {
			return "", &tbcore.ErrAuthUnavailable{Provider: s.provider, Cause: err}
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
