package fiscalconfig

import (
	"context"
)

// Repository defines the persistence contract for fiscal configurations.
type Repository interface {
	// Upsert creates or replaces the configuration for a store.
	Upsert(ctx context.Context, cfg *Config) error

	// Get retrieves the configuration for a store.
	// Returns a NOT_FOUND error when the store has no configuration.
	Get(ctx context.Context, storeID string) (*Config, error)
}
