package fiscalconfig

import (
	"context"

	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

// Service provides business logic for store fiscal configuration.
type Service struct {
	repo Repository
}

// NewService creates a new fiscal configuration service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save validates and persists the configuration (idempotent upsert).
func (s *Service) Save(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return err
	}
	logger.Info(ctx, "fiscal configuration saved",
		"store_id", cfg.StoreID,
		"point_of_sale", cfg.PointOfSale,
		"environment", cfg.Environment,
		"mode", cfg.Mode,
	)
	return nil
}

// Get retrieves the configuration for a store.
func (s *Service) Get(ctx context.Context, storeID string) (*Config, error) {
	return s.repo.Get(ctx, storeID)
}
