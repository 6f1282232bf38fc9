// translate.go maps driver-level database errors onto the security layer's
// closed error taxonomy so handlers and the request wrapper never need to
// inspect pq error codes themselves.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/helpdesk-platform/helpdesk/internal/security"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqRLSViolation        = "42501"
)

// Translate converts a storage error into a classified error. sql.ErrNoRows
// becomes NotFound, deliberately indistinguishable from "exists in another
// tenant". Constraint violations become Conflict. An RLS denial surfaces as
// NotFound rather than Forbidden, so responses never disclose cross-tenant
// existence.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w", security.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation, pqForeignKeyViolation, pqCheckViolation:
			return fmt.Errorf("%w: %s", security.ErrConflict, pqErr.Code.Name())
		case pqRLSViolation:
			return fmt.Errorf("%w", security.ErrNotFound)
		}
	}

	return err
}

// requireRowAffected turns a zero-row UPDATE or DELETE into NotFound. Under
// row-level security a write against an invisible row affects nothing, so
// this is the only signal available.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w", security.ErrNotFound)
	}
	return nil
}
