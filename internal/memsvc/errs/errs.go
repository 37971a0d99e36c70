// Package errs defines the sentinel error kinds shared across the memory
// service, mirroring the error-kind table the Fact Store, Router, and
// Indexing Pipeline all report against.
package errs

import "errors"

// Sentinel errors. Errors of these kinds wrap one of them via
// fmt.Errorf("...: %w",...) so callers can use errors.Is; other errors
// (for example transport or SQL failures) wrap none and Kind reports
// them as "unknown".
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvariantViolated   = errors.New("invariant violated")
	ErrBusy                = errors.New("busy")
	ErrRouterUnavailable   = errors.New("router unavailable")
	ErrRouterSchemaInvalid = errors.New("router schema invalid")
	ErrIndexUnavailable    = errors.New("index unavailable")
	ErrJobTimeout          = errors.New("job timeout")
	ErrNotFound            = errors.New("not found")
)

// Kind returns the sentinel's name for logging/telemetry, or "unknown" if
// err doesn't wrap one of the recognized kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrInvariantViolated):
		return "InvariantViolated"
	case errors.Is(err, ErrBusy):
		return "Busy"
	case errors.Is(err, ErrRouterUnavailable):
		return "RouterUnavailable"
	case errors.Is(err, ErrRouterSchemaInvalid):
		return "RouterSchemaInvalid"
	case errors.Is(err, ErrIndexUnavailable):
		return "IndexUnavailable"
	case errors.Is(err, ErrJobTimeout):
		return "JobTimeout"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "unknown"
	}
}
