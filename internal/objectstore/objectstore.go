// Package objectstore implements the durable record store behind the
// Cache Index: create/get/update-in-place of a UnifiedResult by opaque
// CachePointer. Two backends share one wire format (record.go): a Bluesky
// personal-data-server reached over AT Protocol XRPC, and a local sqlite
// table used when no PDS is configured.
package objectstore

import (
	"context"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Store is the three-operation contract the Cache Facade depends on. Input
// links are never part of the serialized record — only the Cache Index
// persists those.
type Store interface {
	Create(ctx context.Context, ur *tbcore.UnifiedResult) (tbcore.CachePointer, error)
	Get(ctx context.Context, pointer tbcore.CachePointer) (*tbcore.UnifiedResult, error)
	UpdateInPlace(ctx context.Context, pointer tbcore.CachePointer, ur *tbcore.UnifiedResult) error
}
