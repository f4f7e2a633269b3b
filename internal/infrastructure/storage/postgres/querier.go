package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the narrow query surface repositories depend on. Both
// pgxpool.Pool and pgx.Tx satisfy it, so repositories work inside and
// outside transactions and tests can substitute a mock.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
