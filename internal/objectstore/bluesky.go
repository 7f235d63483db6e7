package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

const (
	linkResultCollection = "dev.tunebridge.link.result"
	// sessionLifetime is conservative: AT Protocol access tokens are
	// typically valid for a couple of hours, but nothing here depends on
	// the exact figure, so re-authenticating well before expiry is cheap
	// and avoids ever presenting a stale token.
	sessionLifetime = 50 * time.Minute
)

// BlueskyStore persists UnifiedResults as records in a single collection
// on a Bluesky-compatible personal data server, addressed by
// at://<did>/<collection>/<rkey> pointers.
type BlueskyStore struct {
	pdsURL     string
	identifier string
	password   string
	client     *http.Client

	mu      sync.Mutex
	session *blueskySession
	group   singleflight.Group
}

type blueskySession struct {
	accessJwt string
	did       string
	expiresAt time.Time
}

// NewBlueskyStore builds a Store backed by the PDS at pdsURL, authenticating
// as identifier/password.
func NewBlueskyStore(pdsURL, identifier, password string, client *http.Client) *BlueskyStore {
	return &BlueskyStore{
		pdsURL:     strings.TrimRight(pdsURL, "/"),
		identifier: identifier,
		password:   password,
		client:     client,
	}
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
}

func (s *BlueskyStore) token(ctx context.Context) (blueskySession, error) {
	s.mu.Lock()
	if s.session != nil && time.Now().Before(s.session.expiresAt) {
		sess := *s.session
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("session", func() (any, error) {
		return s.mintSession(ctx)
	})
	if err != nil {
		return blueskySession{}, err
	}
	return v.(blueskySession), nil
}

func (s *BlueskyStore) mintSession(ctx context.Context) (blueskySession, error) {
	body, err := json.Marshal(createSessionRequest{Identifier: s.identifier, Password: s.password})
	if err != nil {
		return blueskySession{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.pdsURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return blueskySession{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return blueskySession{}, fmt.Errorf("creating bluesky session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return blueskySession{}, fmt.Errorf("creating bluesky session: status %d: %s", resp.StatusCode, payload)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return blueskySession{}, fmt.Errorf("decoding bluesky session: %w", err)
	}

	sess := blueskySession{accessJwt: out.AccessJwt, did: out.Did, expiresAt: time.Now().Add(sessionLifetime)}
	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
	return sess, nil
}

func pointerURI(did, rkey string) tbcore.CachePointer {
	return tbcore.CachePointer(fmt.Sprintf("at://%s/%s/%s", did, linkResultCollection, rkey))
}

func parsePointerURI(pointer tbcore.CachePointer) (did, rkey string, ok bool) {
	parts := strings.Split(string(pointer), "/")
	if len(parts) != 5 || parts[0] != "at:" || parts[1] != "" {
		return "", "", false
	}
	return parts[2], parts[4], true
}

type recordEnvelope struct {
	Did        string `json:"did"`
	Collection string `json:"collection"`
	Rkey       string `json:"rkey"`
	Record     record `json:"record"`
}

// Create mints a new rkey, writes a createRecord call, and returns the
// resulting at:// pointer.
func (s *BlueskyStore) Create(ctx context.Context, ur *tbcore.UnifiedResult) (tbcore.CachePointer, error) {
	sess, err := s.token(ctx)
	if err != nil {
		return "", err
	}
	rkey := uuid.NewString()

	if err := s.putXRPC(ctx, sess, "com.atproto.repo.createRecord", recordEnvelope{
		Did:        sess.did,
		Collection: linkResultCollection,
		Rkey:       rkey,
		Record:     toRecord(ur),
	}); err != nil {
		return "", err
	}
	return pointerURI(sess.did, rkey), nil
}

// UpdateInPlace overwrites an existing record via putRecord. A 400
// RecordNotFound response means the pointer disappeared; surfaced as
// tbcore.ErrObjectStoreConflict so the Cache Facade can evict and retry.
func (s *BlueskyStore) UpdateInPlace(ctx context.Context, pointer tbcore.CachePointer, ur *tbcore.UnifiedResult) error {
	did, rkey, ok := parsePointerURI(pointer)
	if !ok {
		return fmt.Errorf("malformed bluesky pointer %q", pointer)
	}
	sess, err := s.token(ctx)
	if err != nil {
		return err
	}

	err = s.putXRPC(ctx, sess, "com.atproto.repo.putRecord", recordEnvelope{
		Did:        did,
		Collection: linkResultCollection,
		Rkey:       rkey,
		Record:     toRecord(ur),
	})
	if err != nil && isRecordNotFound(err) {
		return tbcore.ErrObjectStoreConflict
	}
	return err
}

func (s *BlueskyStore) putXRPC(ctx context.Context, sess blueskySession, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pdsURL+"/xrpc/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.accessJwt)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, payload)
	}
	return nil
}

// Get fetches a record via getRecord. A not-found response yields (nil,
// nil) so the Cache Facade treats it as a miss rather than an error.
func (s *BlueskyStore) Get(ctx context.Context, pointer tbcore.CachePointer) (*tbcore.UnifiedResult, error) {
	did, rkey, ok := parsePointerURI(pointer)
	if !ok {
		return nil, fmt.Errorf("malformed bluesky pointer %q", pointer)
	}
	sess, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/xrpc/com.atproto.repo.getRecord?repo=%s&collection=%s&rkey=%s",
		s.pdsURL, did, linkResultCollection, rkey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sess.accessJwt)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling getRecord: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("getRecord: status %d: %s", resp.StatusCode, payload)
	}

	var out struct {
		Value record `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding getRecord response: %w", err)
	}
	return fromRecord(out.Value), nil
}

func isRecordNotFound(err error) bool {
	return strings.Contains(err.Error(), "RecordNotFound") || strings.Contains(err.Error(), "status 400")
}
