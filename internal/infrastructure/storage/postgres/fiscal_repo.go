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
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
)

const fiscalConfigTable = "sys_fiscal_configs"

var fiscalConfigColumns = []string{
	"store_id", "cuit", "point_of_sale", "environment", "authorization_mode",
	"certificate_data", "certificate_password", "updated_at",
}

// FiscalConfigRepo is the PostgreSQL implementation of the fiscal
// configuration repository.
type FiscalConfigRepo struct {
	db Querier
}

var _ fiscalconfig.Repository = (*FiscalConfigRepo)(nil)

// NewFiscalConfigRepo creates a fiscal configuration repository.
func NewFiscalConfigRepo(db Querier) *FiscalConfigRepo {
	return &FiscalConfigRepo{db: db}
}

func (r *FiscalConfigRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Upsert creates or replaces the configuration for a store.
func (r *FiscalConfigRepo) Upsert(ctx context.Context, cfg *fiscalconfig.Config) error {
	sql, args, err := r.builder().
		Insert(fiscalConfigTable).
		Columns(fiscalConfigColumns...).
		Values(
			cfg.StoreID, cfg.CUIT, cfg.PointOfSale,
			string(cfg.Environment), string(cfg.Mode),
			cfg.CertificateData, cfg.CertificatePassword, time.Now().UTC(),
		).
		Suffix(`ON CONFLICT (store_id) DO UPDATE SET
			cuit = EXCLUDED.cuit,
			point_of_sale = EXCLUDED.point_of_sale,
			environment = EXCLUDED.environment,
			authorization_mode = EXCLUDED.authorization_mode,
			certificate_data = EXCLUDED.certificate_data,
			certificate_password = EXCLUDED.certificate_password,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal(fmt.Errorf("upsert fiscal config: %w", err))
	}
	return nil
}

// Get retrieves the configuration for a store.
func (r *FiscalConfigRepo) Get(ctx context.Context, storeID string) (*fiscalconfig.Config, error) {
	sql, args, err := r.builder().
		Select(fiscalConfigColumns...).
		From(fiscalConfigTable).
		Where(squirrel.Eq{"store_id": storeID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var cfg fiscalconfig.Config
	if err := pgxscan.Get(ctx, r.db, &cfg, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("fiscal configuration", storeID)
		}
		return nil, apperror.NewInternal(fmt.Errorf("get fiscal config: %w", err))
	}
	return &cfg, nil
}
