package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the service reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidRegex        = "2201B"
	pgInvalidTextRep      = "22P02"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation (e.g. deleting a referenced employee).
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

// IsInvalidInput reports whether err was caused by malformed input such as a bad regex or uuid.
func IsInvalidInput(err error) bool {
	code := pgCode(err)
	return code == pgInvalidRegex || code == pgInvalidTextRep
}
