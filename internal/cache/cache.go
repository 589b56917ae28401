// Package cache holds query results between writes to the ledger.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Purge drops every entry. Called after each write to the store.
	Purge()

	// Len returns the current number of items in the cache
	Len() int
}

// Stats counts cache lookups since creation.
type Stats struct {
	Hits   uint64
	Misses uint64
}
