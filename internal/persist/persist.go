package persist

import "context"

// Store is a namespaced durable key/value store. It survives process
// restarts and carries no TTL; expiry policy belongs to the caller.
// A read of a missing or corrupt entry reports absent, never an error.
type Store interface {
	// Set serializes value and stores it under the namespaced key.
	Set(ctx context.Context, key string, value interface{}) error

	// Get deserializes the stored value into out. The return is false
	// when the key is absent or the stored bytes do not deserialize.
	Get(ctx context.Context, key string, out interface{}) bool

	// Remove deletes the entry. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
