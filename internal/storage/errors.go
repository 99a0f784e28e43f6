package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/neexbeast/match-weather/internal/apperr"
)

// Querier abstracts the subset of pgxpool.Pool used by the repositories.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storeErr classifies a driver error: a unique violation means another
// writer got the key first, anything else means the store is unusable.
func storeErr(err error, format string, args ...any) error {
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindDuplicateKeyRace, err, format, args...)
	}
	return apperr.Wrap(apperr.KindStoreUnavailable, err, format, args...)
}
