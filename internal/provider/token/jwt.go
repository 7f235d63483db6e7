// Package token implements the Token Source collaborator: minting and
// caching the credentials each provider's Lookup needs, refreshed
// single-flight so concurrent Aggregator goroutines never mint twice.
package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/sync/singleflight"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// appleTokenLifetime is kept well under Apple's 6-month ceiling; a short
// lifetime means a compromised token expires quickly and the refresh path
// gets exercised routinely instead of once every few months.
const appleTokenLifetime = 12 * time.Hour

// AppleSource mints and caches an Apple Music developer token: a JWS over a
// minimal claim set, signed with the team's ES256 private key.
type AppleSource struct {
	teamId string
	keyId  string
	key    *ecdsa.PrivateKey

	mu        sync.RWMutex
	cached    string
	expiresAt time.Time
	group     singleflight.Group
}

// NewAppleSource loads the ES256 private key from keyPath and validates the
// credential triple. It returns ErrAuthConfigInvalid if the key file is
// missing, empty, or not a valid PKCS8 EC private key.
func NewAppleSource(teamId, keyId, keyPath string) (*AppleSource, error) {
	if teamId == "" || keyId == "" || keyPath == "" {
		return nil, &tbcore.ErrAuthConfigInvalid{
			Provider: tbcore.AppleMusic,
			Cause:    fmt.Errorf("team id, key id, and key path are all required"),
		}
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &tbcore.ErrAuthConfigInvalid{Provider: tbcore.AppleMusic, Cause: err}
	}
	if len(raw) == 0 {
		return nil, &tbcore.ErrAuthConfigInvalid{
			Provider: tbcore.AppleMusic,
			Cause:    fmt.Errorf("key file %q is empty", keyPath),
		}
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, &tbcore.ErrAuthConfigInvalid{
			Provider: tbcore.AppleMusic,
			Cause:    fmt.Errorf("key file %q is not PEM-encoded", keyPath),
		}
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &tbcore.ErrAuthConfigInvalid{Provider: tbcore.AppleMusic, Cause: err}
	}
	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, &tbcore.ErrAuthConfigInvalid{
			Provider: tbcore.AppleMusic,
			Cause:    fmt.Errorf("key is not an EC private key"),
		}
	}

	return &AppleSource{teamId: teamId, keyId: keyId, key: ecKey}, nil
}

// Token returns a cached developer token if it has more than a minute of
// life left, otherwise mints a fresh one. Concurrent callers racing a
// refresh share the same mint via singleflight.
func (s *AppleSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.cached != "" && time.Until(s.expiresAt) > time.Minute {
		tok := s.cached
		s.mu.RUnlock()
		return tok, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("mint", func() (any, error) {
		return s.mint()
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *AppleSource) mint() (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: s.key}, &jose.SignerOptions{
		ExtraHeaders: map[jose.HeaderKey]any{
			"kid": s.keyId,
			"alg": "ES256",
		},
	})
	if err != nil {
		return "", &tbcore.ErrAuthUnavailable{Provider: tbcore.AppleMusic, Cause: err}
	}

	now := time.Now()
	claims := jwt.Claims{
		Issuer:   s.teamId,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(appleTokenLifetime)),
	}
	signed, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", &tbcore.ErrAuthUnavailable{Provider: tbcore.AppleMusic, Cause: err}
	}

	s.mu.Lock()
	s.cached = signed
	s.expiresAt = now.Add(appleTokenLifetime)
	s.mu.Unlock()

	return signed, nil
}
