package memory

import (
	"context"
	"errors"
	"fmt"
)

// Storage keys, scoped per session by Key.
const (
	KeyChatHistory     = "chatHistory"
	KeyProductFeedback = "product-feedback"
	KeyViewedItems     = "viewedItems"
)

// KV is the string key-value medium behind the Persistence Adapter.
// This allows us to swap between Redis, SQLite, in-memory, etc.
type KV interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Key builds the storage key for a session-scoped value
func Key(sessionID, name string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, name)
}

// CorruptStateError reports stored data that could not be decoded or does
// not describe a valid value. The adapter recovers from it locally; it is
// only ever logged.
type CorruptStateError struct {
	Key   string
	Cause error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt stored value for %s: %v", e.Key, e.Cause)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Cause
}

// IsCorrupt reports whether err is a CorruptStateError
func IsCorrupt(err error) bool {
	var ce *CorruptStateError
	return errors.As(err, &ce)
}
