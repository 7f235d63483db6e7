// Package cacheindex implements the local link -> record-pointer index
// fronting the durable Object Store: normalized link lookups, pointer
// bookkeeping, and first-writer-wins handling of concurrent link inserts.
package cacheindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Index is the Cache Facade's sole view of the local sqlite index. Every
// method is safe for concurrent use; sqlite itself serializes writers.
type Index struct {
	db *sql.DB
}

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Index {
	return &Index{db: db}
}

// NormalizeLink lowercases a link, strips its scheme and trailing slash,
// and trims surrounding whitespace, matching the Cache Facade's
// normalized-link key.
func NormalizeLink(link string) string {
	s := strings.ToLower(strings.TrimSpace(link))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimRight(s, "/")
}

// Entry mirrors tbcore.CacheIndexEntry for a single normalized link.
type Entry = tbcore.CacheIndexEntry

// Get looks up the index row for a normalized link. Returns (Entry{}, false)
// if no row exists.
func (ix *Index) Get(ctx context.Context, normalizedLink string) (Entry, bool, error) {
	row := ix.db.QueryRowContext(ctx, `
		SELECT cl.normalized_link, cp.pointer, cp.created_at, cp.last_looked_up_at
		FROM cache_link cl
		JOIN cache_pointer cp ON cp.pointer = cl.pointer
		WHERE cl.normalized_link = ?`, normalizedLink)

	var e Entry
	var pointer string
	if err := row.Scan(&e.NormalizedLink, &pointer, &e.CreatedAt, &e.LastLookedUpAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("reading cache index: %w", err)
	}
	e.Pointer = tbcore.CachePointer(pointer)
	return e, true, nil
}

// CreatePointer inserts a new pointer row, stamping createdAt and
// lastLookedUpAt to now.
func (ix *Index) CreatePointer(ctx context.Context, pointer tbcore.CachePointer, now string) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO cache_pointer (pointer, created_at, last_looked_up_at)
		VALUES (?, ?, ?)`, string(pointer), now, now)
	if err != nil {
		return fmt.Errorf("creating cache pointer: %w", err)
	}
	return nil
}

// TouchPointer advances a pointer's lastLookedUpAt to now.
func (ix *Index) TouchPointer(ctx context.Context, pointer tbcore.CachePointer, now string) error {
	_, err := ix.db.ExecContext(ctx, `
		UPDATE cache_pointer SET last_looked_up_at = ? WHERE pointer = ?`, now, string(pointer))
	if err != nil {
		return fmt.Errorf("touching cache pointer: %w", err)
	}
	return nil
}

// RemovePointer deletes a pointer row; cascading deletes take its link rows
// with it.
func (ix *Index) RemovePointer(ctx context.Context, pointer tbcore.CachePointer) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM cache_pointer WHERE pointer = ?`, string(pointer))
	if err != nil {
		return fmt.Errorf("removing cache pointer: %w", err)
	}
	return nil
}

// AddLinks inserts normalized-link rows against pointer. Each insert races
// every other writer targeting the same link; on a unique-constraint
// violation this re-reads the existing row and silently drops the write if
// it already points at the intended pointer (first writer wins), matching
// the Cache Facade's idempotent-batch requirement. A collision against a
// different pointer is also dropped — the row that got there first keeps
// the link.
func (ix *Index) AddLinks(ctx context.Context, pointer tbcore.CachePointer, links []string) error {
	for _, link := range links {
		if err := ix.addLink(ctx, pointer, link); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) addLink(ctx context.Context, pointer tbcore.CachePointer, link string) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO cache_link (normalized_link, pointer) VALUES (?, ?)`, link, string(pointer))
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return fmt.Errorf("inserting cache link: %w", err)
	}

	existing, ok, readErr := ix.Get(ctx, link)
	if readErr != nil {
		return readErr
	}
	if ok && existing.Pointer != pointer {
		return nil // a concurrent writer already claimed this link for another pointer
	}
	return nil
}

// modernc.org/sqlite surfaces constraint violations as a plain error with
// the sqlite3 message text rather than a typed sentinel, so detection is
// string-based.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "constraint failed")
}
