package sequence

import (
	"context"
)

// Repository defines the persistence contract for numbering streams.
//
// Next is the one operation with a hard linearizability requirement: it must
// increment and read the counter in a single storage-level atomic step
// (UPDATE ... RETURNING or equivalent), never an application-level
// read-modify-write.
type Repository interface {
	// Upsert creates or replaces the configuration for a key.
	Upsert(ctx context.Context, counter *Counter) error

	// Get retrieves the counter for a key, configured or not active.
	Get(ctx context.Context, key Key) (*Counter, error)

	// Next atomically increments the counter and returns its post-increment
	// state. Returns a SEQUENCE_NOT_CONFIGURED error when the key has no
	// active configuration.
	Next(ctx context.Context, key Key) (*Counter, error)

	// List returns counters matching the filter, active ones only.
	List(ctx context.Context, filter Filter) ([]*Counter, error)

	// FastForward raises the counter to at least value. It never lowers it;
	// used by reconciliation when the authority is ahead.
	FastForward(ctx context.Context, key Key, value int64) error

	// Deactivate blocks further allocation on the key pending manual review.
	Deactivate(ctx context.Context, key Key) error
}
