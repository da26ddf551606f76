// Package sqlxrepos implements the domain repository interfaces with
// parameterized queries over jmoiron/sqlx + lib/pq.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

const pgUniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" to the package's not-found sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint (any constraint when name is empty).
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code) == pgUniqueViolation &&
			(constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

// orderBy renders an ORDER BY clause from the caller's orderable columns.
// The ordering fields come straight from the request's query string, so
// anything outside the whitelist is dropped rather than interpolated into the
// query. Falls back to `id` for stable output.
func orderBy(ordering []core.DBOrdering, orderable ...string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, col := range orderable {
			if ord.Field == col {
				parts = append(parts, ord.String())
				break
			}
		}
	}
	if len(parts) == 0 {
		return " ORDER BY id"
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
