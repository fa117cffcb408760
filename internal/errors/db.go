package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors from the session slot table to AppError instances:
//   - pgx.ErrNoRows → NotFound
//   - missing table or schema → Unavailable (schema not initialized)
//   - connection and resource errors → Unavailable
//   - unique violations → Conflict
//   - context timeouts/cancellations → Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrCodeTimeout, "database call timed out")
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeCanceled, "database call canceled")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(err, ErrCodeNotFound, "row not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			return Wrap(err, ErrCodeUnavailable, "database unreachable")
		}
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UndefinedTable, pgErr.Code == pgerrcode.InvalidSchemaName:
		return &AppError{Code: ErrCodeUnavailable, Message: "session table missing", Field: pgErr.TableName, Cause: pgErr}
	case pgerrcode.IsConnectionException(pgErr.Code), pgerrcode.IsInsufficientResources(pgErr.Code):
		return Wrap(pgErr, ErrCodeUnavailable, "database unavailable")
	case pgErr.Code == pgerrcode.UniqueViolation:
		return &AppError{Code: ErrCodeConflict, Message: "value already exists", Field: pgErr.ColumnName, Cause: pgErr}
	case pgErr.Code == pgerrcode.QueryCanceled:
		return Wrap(pgErr, ErrCodeTimeout, "database statement canceled")
	default:
		return Wrap(pgErr, ErrCodeInternal, "database error")
	}
}
