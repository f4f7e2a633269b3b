package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
)

const sequenceTable = "sys_invoice_sequences"

var sequenceColumns = []string{
	"store_id", "point_of_sale", "invoice_type",
	"current_val", "prefix", "suffix", "pad_length", "active", "updated_at",
}

// SequenceRepo is the PostgreSQL implementation of the numbering stream
// repository. Allocation relies on a single UPDATE ... RETURNING so two
// concurrent callers can never observe the same value.
type SequenceRepo struct {
	db Querier
}

var _ sequence.Repository = (*SequenceRepo)(nil)

// NewSequenceRepo creates a sequence repository.
func NewSequenceRepo(db Querier) *SequenceRepo {
	return &SequenceRepo{db: db}
}

func (r *SequenceRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Upsert creates or replaces the configuration for a key.
func (r *SequenceRepo) Upsert(ctx context.Context, c *sequence.Counter) error {
	sql, args, err := r.builder().
		Insert(sequenceTable).
		Columns(sequenceColumns...).
		Values(
			c.StoreID, c.PointOfSale, string(c.InvoiceType),
			c.CurrentValue, c.Prefix, c.Suffix, c.PadLength, c.Active, time.Now().UTC(),
		).
		Suffix(`ON CONFLICT (store_id, point_of_sale, invoice_type) DO UPDATE SET
			current_val = EXCLUDED.current_val,
			prefix = EXCLUDED.prefix,
			suffix = EXCLUDED.suffix,
			pad_length = EXCLUDED.pad_length,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(fmt.Errorf("upsert sequence: %w", err))
	}
	return nil
}

// Get retrieves the counter for a key regardless of its active flag.
func (r *SequenceRepo) Get(ctx context.Context, key sequence.Key) (*sequence.Counter, error) {
	sql, args, err := r.builder().
		Select(sequenceColumns...).
		From(sequenceTable).
		Where(squirrel.Eq{
			"store_id":      key.StoreID,
			"point_of_sale": key.PointOfSale,
			"invoice_type":  string(key.InvoiceType),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var counter sequence.Counter
	if err := pgxscan.Get(ctx, r.db, &counter, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("sequence", key.String())
		}
		return nil, apperror.NewInternal(fmt.Errorf("get sequence: %w", err))
	}
	return &counter, nil
}

// Next atomically increments the counter and returns its post-increment
// state. The WHERE clause skips inactive rows, so a blocked counter is
// indistinguishable from a missing one.
func (r *SequenceRepo) Next(ctx context.Context, key sequence.Key) (*sequence.Counter, error) {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET current_val = current_val + 1, updated_at = $4
		WHERE store_id = $1 AND point_of_sale = $2 AND invoice_type = $3 AND active
		RETURNING %s`,
		sequenceTable, joinColumns(sequenceColumns))

	var counter sequence.Counter
	err := pgxscan.Get(ctx, r.db, &counter, sql,
		key.StoreID, key.PointOfSale, string(key.InvoiceType), time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewSequenceNotConfigured(key.StoreID, key.PointOfSale, string(key.InvoiceType))
		}
		return nil, apperror.NewInternal(fmt.Errorf("allocate next value: %w", err))
	}
	return &counter, nil
}

// List returns active counters matching the filter.
func (r *SequenceRepo) List(ctx context.Context, filter sequence.Filter) ([]*sequence.Counter, error) {
	q := r.builder().
		Select(sequenceColumns...).
		From(sequenceTable).
		Where(squirrel.Eq{"active": true}).
		OrderBy("store_id", "point_of_sale", "invoice_type")

	if filter.StoreID != "" {
		q = q.Where(squirrel.Eq{"store_id": filter.StoreID})
	}
	if filter.PointOfSale != "" {
		q = q.Where(squirrel.Eq{"point_of_sale": filter.PointOfSale})
	}
	if filter.InvoiceType != "" {
		q = q.Where(squirrel.Eq{"invoice_type": string(filter.InvoiceType)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var counters []*sequence.Counter
	if err := pgxscan.Select(ctx, r.db, &counters, sql, args...); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("list sequences: %w", err))
	}
	return counters, nil
}

// FastForward raises the counter to at least value; it never lowers it.
func (r *SequenceRepo) FastForward(ctx context.Context, key sequence.Key, value int64) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET current_val = GREATEST(current_val, $4), updated_at = $5
		WHERE store_id = $1 AND point_of_sale = $2 AND invoice_type = $3`,
		sequenceTable)

	tag, err := r.db.Exec(ctx, sql,
		key.StoreID, key.PointOfSale, string(key.InvoiceType), value, time.Now().UTC())
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("fast-forward sequence: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sequence", key.String())
	}
	return nil
}

// Deactivate blocks further allocation on the key.
func (r *SequenceRepo) Deactivate(ctx context.Context, key sequence.Key) error {
	sql, args, err := r.builder().
		Update(sequenceTable).
		Set("active", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"store_id":      key.StoreID,
			"point_of_sale": key.PointOfSale,
			"invoice_type":  string(key.InvoiceType),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("deactivate sequence: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sequence", key.String())
	}
	return nil
}
