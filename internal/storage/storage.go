// Package storage defines the persistent key-value contract the rest of the
// application is built on: string keys, string values, whole-value writes.
//
// WHY A KV STORE AND NOT TABLES?
// The dataset is one small collection that is always read and rewritten as a
// whole. Each logical document (the prompt collection, the settings object,
// the sync state) lives under one key, and every write replaces the full
// value — one key, one atomic write, no partial-update anomalies to reason
// about. The concrete backend (SQLite) is an implementation detail behind
// this interface.
package storage

import "context"

// Storage keys. These are kept stable so existing datasets keep working
// across upgrades — do not rename them.
const (
	KeyPrompts   = "simple_prompt_manager_data"
	KeySettings  = "simple_prompt_manager_settings"
	KeySyncState = "simple_prompt_manager_sync_state"
	KeyToken     = "simple_prompt_manager_pat"
)

// Store is the persistent string-keyed store.
//
// Get reports found=false for a missing key; that is not an error.
// Set fully replaces the value under key. Writes are atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
