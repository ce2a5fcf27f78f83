/*
Package facterrors defines the error taxonomy shared across
factengine's packages.

Each kind is a sentinel; the constructors below wrap it, with a reason,
in an error whose Unwrap returns the sentinel, rather than using a
custom error-code enum.
Callers that need to branch on kind use errors.Is against the
sentinels below; callers that only need to log or surface the error
can treat it as a plain error.
*/
package facterrors

import "errors"

var (
	// ErrInvalidFact means canonicalization or a type constraint was
	// violated: an unsupported field type, a non-reference predecessor,
	// or an empty type string.
	ErrInvalidFact = errors.New("invalid fact")

	// ErrNotFound means a reference was required in storage but absent.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means no registered authorization rule admitted the
	// fact. No fact is persisted when this is returned.
	ErrForbidden = errors.New("forbidden")

	// ErrTransportRetryable means a network failure occurred that the
	// caller, or the outbox, may retry.
	ErrTransportRetryable = errors.New("transport error (retryable)")

	// ErrTransportFatal means the remote rejected the request with a
	// 4xx other than 401/407/419/403; it is surfaced to the caller.
	ErrTransportFatal = errors.New("transport error (fatal)")

	// ErrQueryMalformed means a configuration-time fault was found in a
	// specification: an unknown referenced before binding, a
	// self-anchoring path condition, or a role/type contradiction.
	ErrQueryMalformed = errors.New("query malformed")

	// ErrCancelled means an observer or subscriber was stopped mid-flight.
	ErrCancelled = errors.New("cancelled")

	// ErrCorrupt means an ancestor closure was missing for a stored
	// fact — a corruption signal that halts the operation.
	ErrCorrupt = errors.New("storage corrupt")
)

// InvalidFact wraps ErrInvalidFact with a reason.
func InvalidFact(reason string) error {
	return &kindError{kind: ErrInvalidFact, reason: reason}
}

// NotFound wraps ErrNotFound naming the missing reference.
func NotFound(what string) error {
	return &kindError{kind: ErrNotFound, reason: what}
}

// Forbidden wraps ErrForbidden naming the fact type that was rejected.
func Forbidden(factType string) error {
	return &kindError{kind: ErrForbidden, reason: "fact type " + factType}
}

// QueryMalformed wraps ErrQueryMalformed with a reason.
func QueryMalformed(reason string) error {
	return &kindError{kind: ErrQueryMalformed, reason: reason}
}

type kindError struct {
	kind   error
	reason string
}

func (e *kindError) Error() string {
	if e.reason == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.reason
}

func (e *kindError) Unwrap() error {
	return e.kind
}
