package sequence

import (
	"context"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

// Service provides business logic for invoice numbering streams.
type Service struct {
	repo Repository
}

// NewService creates a new sequence service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ConfigureInput carries the configuration for one numbering stream.
type ConfigureInput struct {
	Key          Key
	InitialValue int64
	PadLength    int
	Prefix       string
	Suffix       string
	Active       bool
}

// Configure creates or replaces the configuration for a key (idempotent
// upsert). The first allocation after configuring returns InitialValue+1.
func (s *Service) Configure(ctx context.Context, in ConfigureInput) (*Counter, error) {
	if err := in.Key.Validate(); err != nil {
		return nil, err
	}
	if in.PadLength < 1 {
		return nil, apperror.NewValidation("pad length must be at least 1").
			WithDetail("field", "padLength")
	}
	if in.InitialValue < 0 {
		return nil, apperror.NewValidation("initial value must not be negative").
			WithDetail("field", "initialValue")
	}

	counter := &Counter{
		Key:          in.Key,
		CurrentValue: in.InitialValue,
		Prefix:       in.Prefix,
		Suffix:       in.Suffix,
		PadLength:    in.PadLength,
		Active:       in.Active,
	}

	if err := s.repo.Upsert(ctx, counter); err != nil {
		return nil, err
	}

	logger.Info(ctx, "sequence configured",
		"key", in.Key.String(),
		"initial_value", in.InitialValue,
		"active", in.Active,
	)
	return counter, nil
}

// AllocateNext atomically allocates the next number for the key.
// For N concurrent callers the returned raw values form a contiguous range,
// each value handed to exactly one caller. An allocation is never rolled
// back: a later submission failure leaves a documented gap.
func (s *Service) AllocateNext(ctx context.Context, key Key) (*Allocation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	counter, err := s.repo.Next(ctx, key)
	if err != nil {
		return nil, err
	}

	alloc := &Allocation{
		Key:       key,
		RawValue:  counter.CurrentValue,
		Formatted: counter.Format(counter.CurrentValue),
	}

	logger.Info(ctx, "sequence allocated",
		"key", key.String(),
		"raw_value", alloc.RawValue,
		"formatted", alloc.Formatted,
	)
	return alloc, nil
}

// List returns the active counters matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Counter, error) {
	return s.repo.List(ctx, filter)
}

// FastForward raises the counter to the authority's last authorized number.
// Called by reconciliation when the authority is ahead of the local counter.
func (s *Service) FastForward(ctx context.Context, key Key, value int64) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.repo.FastForward(ctx, key, value); err != nil {
		return err
	}
	logger.Warn(ctx, "sequence fast-forwarded",
		"key", key.String(),
		"value", value,
	)
	return nil
}

// Block deactivates the counter pending manual review. Used when
// reconciliation finds the authority behind the local counter, which should
// not happen under correct allocate-before-submit ordering.
func (s *Service) Block(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, key); err != nil {
		return err
	}
	logger.Error(ctx, "sequence blocked pending manual review", "key", key.String())
	return nil
}
