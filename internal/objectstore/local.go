package objectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

const localPointerPrefix = "local://"

// LocalStore is the standalone fallback used when no Bluesky PDS is
// configured: the same record wire format, persisted in a sqlite table
// alongside the Cache Index rather than on a remote PDS.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore wraps an already-migrated *sql.DB holding the
// object_store table.
func NewLocalStore(db *sql.DB) *LocalStore {
	return &LocalStore{db: db}
}

func (s *LocalStore) Create(ctx context.Context, ur *tbcore.UnifiedResult) (tbcore.CachePointer, error) {
	rkey := uuid.NewString()
	body, err := json.Marshal(toRecord(ur))
	if err != nil {
		return "", fmt.Errorf("marshaling record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO object_store (rkey, body, updated_at) VALUES (?, ?, ?)`,
		rkey, body, ur.LookedUpAt)
	if err != nil {
		return "", fmt.Errorf("inserting object_store row: %w", err)
	}
	return tbcore.CachePointer(localPointerPrefix + rkey), nil
}

func (s *LocalStore) Get(ctx context.Context, pointer tbcore.CachePointer) (*tbcore.UnifiedResult, error) {
	rkey, ok := localRkey(pointer)
	if !ok {
		return nil, fmt.Errorf("malformed local pointer %q", pointer)
	}

	var body []byte
	row := s.db.QueryRowContext(ctx, `SELECT body FROM object_store WHERE rkey = ?`, rkey)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading object_store row: %w", err)
	}

	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}
	return fromRecord(rec), nil
}

func (s *LocalStore) UpdateInPlace(ctx context.Context, pointer tbcore.CachePointer, ur *tbcore.UnifiedResult) error {
	rkey, ok := localRkey(pointer)
	if !ok {
		return fmt.Errorf("malformed local pointer %q", pointer)
	}
	body, err := json.Marshal(toRecord(ur))
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE object_store SET body = ?, updated_at = ? WHERE rkey = ?`,
		body, ur.LookedUpAt, rkey)
	if err != nil {
		return fmt.Errorf("updating object_store row: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return tbcore.ErrObjectStoreConflict
	}
	return nil
}

func localRkey(pointer tbcore.CachePointer) (string, bool) {
	s := string(pointer)
	if !strings.HasPrefix(s, localPointerPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s, localPointerPrefix), true
}
