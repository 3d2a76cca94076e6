package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE codes the storefront reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// constraintError is the driver independent view of an integrity failure.
type constraintError struct {
	state      string
	constraint string
}

func asConstraintError(err error) (constraintError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return constraintError{state: pgErr.Code, constraint: pgErr.ConstraintName}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return constraintError{state: string(pqErr.Code), constraint: pqErr.Constraint}, true
	}
	return constraintError{}, false
}

func matchesConstraint(err error, state, constraintName string, sqliteHints ...string) bool {
	if err == nil {
		return false
	}
	if ce, ok := asConstraintError(err); ok {
		return ce.state == state && (constraintName == "" || ce.constraint == constraintName)
	}

	// sqlite, used by tests, only reports constraints in the message text.
	msg := err.Error()
	for _, hint := range sqliteHints {
		if strings.Contains(msg, hint) {
			return constraintName == "" || strings.Contains(msg, constraintName)
		}
	}
	return false
}

// IsUniqueViolation reports a duplicate key, such as a second wishlist entry for
// the same product or a reused product name. When constraintName is set the
// error must name that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return matchesConstraint(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports a reference to a row that does not exist, for
// example a review or wishlist entry whose product was deleted meanwhile.
func IsForeignKeyViolation(err error, constraintName string) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return matchesConstraint(err, pgForeignKeyViolation, constraintName, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

// IsCheckViolation reports a CHECK constraint failure such as stock going negative.
func IsCheckViolation(err error, constraintName string) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	return matchesConstraint(err, pgCheckViolation, constraintName, "violates check constraint", "CHECK constraint failed")
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
