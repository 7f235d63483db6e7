package tbcore

import (
	"errors"
	"fmt"
	"time"
)

// ErrProviderUnavailable is a transient remote failure (5xx, timeout, 429).
// Provider Lookups never let this escape past their own boundary; it exists
// so the boundary itself has something concrete to log and count.
type ErrProviderUnavailable struct {
	Provider   ProviderId
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrProviderMalformed is a JSON parse failure or a response missing a
// required field.
type ErrProviderMalformed struct {
	Provider ProviderId
	Cause    error
}

func (e *ErrProviderMalformed) Error() string {
	return fmt.Sprintf("provider %s returned a malformed response: %v", e.Provider, e.Cause)
}

func (e *ErrProviderMalformed) Unwrap() error { return e.Cause }

// ErrAuthUnavailable means a Token Source could not reach its token endpoint
// after retry.
type ErrAuthUnavailable struct {
	Provider ProviderId
	Cause    error
}

func (e *ErrAuthUnavailable) Error() string {
	return fmt.Sprintf("provider %s: auth unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrAuthUnavailable) Unwrap() error { return e.Cause }

// ErrAuthConfigInvalid means the credentials for a Token Source could not
// even be loaded (bad PEM, empty client secret, etc).
type ErrAuthConfigInvalid struct {
	Provider ProviderId
	Cause    error
}

func (e *ErrAuthConfigInvalid) Error() string {
	return fmt.Sprintf("provider %s: auth config invalid: %v", e.Provider, e.Cause)
}

func (e *ErrAuthConfigInvalid) Unwrap() error { return e.Cause }

// ErrCacheUnavailable signals the Cache Facade should degrade to
// pass-through; the Aggregator still runs underneath it.
var ErrCacheUnavailable = errors.New("cache unavailable")

// ErrObjectStoreConflict means an update-in-place failed because the
// pointer disappeared from the object store between read and write.
var ErrObjectStoreConflict = errors.New("object store conflict: pointer not found")

// ErrConfigurationInsufficient is fatal at startup: no provider enable-set
// was complete.
var ErrConfigurationInsufficient = errors.New("configuration insufficient: no provider fully configured")

// ErrNotFound means the requested identifier/link has no match anywhere.
var ErrNotFound = errors.New("not found")
