package pgstore

import (
	stderrors "errors"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr translates low-level pg errors into the store taxonomy so callers can
// match with errors.Is. Anything unrecognized is wrapped with the given message.
func mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(models.ErrNotFound, msg)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Wrap(models.ErrUniqueViolation, msg)
		case pgForeignKeyViolation:
			return errors.Wrap(models.ErrForeignKey, msg)
		}
	}
	return errors.Wrap(err, msg)
}
