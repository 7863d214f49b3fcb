// Package storage provides the durable key-value accessor backing client
// state (cached identity, session token). Values are stored as JSON.
//
// The accessor never surfaces storage failures to callers: a missing or
// corrupt value degrades to the caller's default and writes are best-effort.
// Bootstrap therefore cannot fail because of local-state corruption.
package storage

import "context"

// Well-known keys. Absence of either implies an unauthenticated client.
const (
	KeyUser    = "user"
	KeySession = "session"
)

// KV is the accessor surface the session store and gateway depend on.
type KV interface {
	// Get unmarshals the value stored under key into out and reports whether
	// a usable value was found. Missing keys and malformed values leave out
	// untouched and return false.
	Get(ctx context.Context, key string, out any) bool

	// GetString returns the string stored under key, or "" when absent or
	// malformed. Convenience for the raw session token.
	GetString(ctx context.Context, key string) string

	// Set stores v under key as JSON. Failures are logged and swallowed.
	Set(ctx context.Context, key string, v any)

	// SetString stores value under key. Best-effort, like Set.
	SetString(ctx context.Context, key, value string)

	// Remove deletes key. Failures are logged and swallowed.
	Remove(ctx context.Context, key string)

	// ClearCredentials removes the user and session keys in one transaction.
	ClearCredentials(ctx context.Context)
}
