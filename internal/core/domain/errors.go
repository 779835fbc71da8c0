package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a document reference failed validation
	// (malformed doc ID or unsupported doc type). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrTenantRequired indicates a store call was made without a tenant scope.
	ErrTenantRequired = errors.New("tenant scope required")

	// Fetch Errors.

	// ErrFetchFailed indicates every fetch attempt failed with a transient error.
	// Callers treat it as "no data this cycle".
	ErrFetchFailed = errors.New("metadata fetch failed")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrRequestNotSent indicates the provider gave up before sending the
	// request, for example during a rate-limit backoff. It is not an API call.
	ErrRequestNotSent = errors.New("request not sent")

	// ErrForbidden indicates the credentials cannot read the document.
	ErrForbidden = errors.New("forbidden")

	// ErrPersistence indicates a write to the tracking store or audit trail failed.
	ErrPersistence = errors.New("persistence failed")

	// ErrNotifier indicates a notification could not be delivered.
	ErrNotifier = errors.New("notification failed")

	// ErrUnsupportedDestination indicates no notifier handles the destination scheme.
	ErrUnsupportedDestination = errors.New("unsupported notification destination")

	// ErrPollerRunning indicates Start was called on a poller that is already running.
	ErrPollerRunning = errors.New("poller already running")
)

// IsPermanentFetchError reports whether a provider error should not be retried.
func IsPermanentFetchError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden)
}
