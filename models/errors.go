package models

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/shopfront/catalog/apperrors"
)

const pgUniqueViolation = "23505"

// translateErr maps driver and gorm errors onto the application taxonomy.
// entity names the record being operated on ("product", "category").
func translateErr(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(entity + " store operation", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.Conflict(entity+" already exists", constraintField(pgErr.ConstraintName))
	}
	// Only reachable when the error was translated before it got here; the
	// sentinel carries no constraint name, so no field can be blamed.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(entity+" already exists", "")
	}

	return apperrors.Internal(entity+" store operation failed", err)
}

// constraintField maps a unique index name back to the colliding column.
// gorm names uniqueIndex indexes idx_<table>_<column>.
func constraintField(constraint string) string {
	for _, field := range []string{"name", "slug", "sku"} {
		if strings.HasSuffix(constraint, "_"+field) {
			return field
		}
	}
	return constraint
}
