package workflow

import "errors"

// Sentinel errors forming the workflow error taxonomy. Handlers map these to
// HTTP status codes; the engine never retries the business-rule ones
// (ErrInvalidTransition, ErrForbidden, ErrInvalidState) because they signal a
// caller logic error rather than a transient failure.
var (
	// ErrInvalidTransition means the request's current state has no edge to
	// the action's target state.
	ErrInvalidTransition = errors.New("invalid transition for current state")

	// ErrForbidden means the actor's role is not allowed to perform the action.
	ErrForbidden = errors.New("role not permitted to perform this action")

	// ErrAlreadyInState means the action's target equals the current state.
	// The engine maps this to a successful no-op so double-submits are
	// tolerated without appending a second ledger entry.
	ErrAlreadyInState = errors.New("request already in target state")

	// ErrConflict means the actor lost a write race; the caller must re-read
	// the current state before retrying.
	ErrConflict = errors.New("request was modified concurrently")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidState means an operation outside the transition table (such
	// as purchase order creation) was attempted against a request in the
	// wrong state.
	ErrInvalidState = errors.New("request is not in a valid state for this operation")

	// ErrUnavailable means the store could not be reached within the retry
	// budget. Surfaced only after bounded backoff retries exhaust.
	ErrUnavailable = errors.New("store temporarily unavailable")
)

// IsBusinessRuleError reports whether err is a business-rule rejection that
// must be surfaced verbatim with no writes and no automatic retry.
func IsBusinessRuleError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState)
}
