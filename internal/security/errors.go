// errors.go defines the closed set of error kinds the security layer raises and
// the request wrapper classifies. Guard and resolver failures are typed so the
// wrapper can match them exhaustively instead of relying on catch-all handling.
package security

import "errors"

var (
	// ErrUnauthenticated means no valid session was presented. It fails the
	// request before any binding occurs.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means a resolved, valid caller failed a role, permission, or
	// tenant-equality check.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means a resource does not exist within the caller's visible
	// scope. It is deliberately indistinguishable from "exists but belongs to
	// another tenant".
	ErrNotFound = errors.New("not found")

	// ErrConflict means the storage layer reported a uniqueness or invariant
	// violation.
	ErrConflict = errors.New("conflict")

	// ErrContextBinding means the binder could not apply the scoped settings.
	// Fatal for the request: no query executes, and the request must never
	// degrade to running without a binding.
	ErrContextBinding = errors.New("security context binding failed")
)

// Kind identifies one of the classified error categories.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindContextBinding
)

// ClassifyError maps an error onto the closed taxonomy. Unrecognized errors
// classify as KindInternal so nothing internal leaks to callers.
func ClassifyError(err error) Kind {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrContextBinding):
		return KindContextBinding
	default:
		return KindInternal
	}
}
