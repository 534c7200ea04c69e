package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	internalShared "github.com/bodega-erp/bodega/internal/shared"
)

// Sentinels wrap the application-wide errors so handlers can render
// them through internalShared.UserSafeMessage with errors.Is.
var (
	ErrNotFound      = fmt.Errorf("resource: %w", internalShared.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("duplicate entry: %w", internalShared.ErrDuplicateName)
	ErrInUse         = fmt.Errorf("still referenced: %w", internalShared.ErrIntegrityConflict)
	ErrValidation    = errors.New("validation failed")
	ErrInvalidID     = errors.New("invalid ID")
	ErrRequiredField = errors.New("field is required")
)

// MapPgError translates PostgreSQL constraint violations into the
// package sentinels so callers never inspect SQLSTATE codes directly.
func MapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return ErrInUse
	}
	return err
}
