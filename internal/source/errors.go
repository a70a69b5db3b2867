package source

import "errors"

// Fatal error classes for provider access. Any of these aborts the run;
// callers match with errors.Is.
var (
	// ErrAuthentication means the token was rejected. Never retried.
	ErrAuthentication = errors.New("source: authentication failed")

	// ErrRateLimitExceeded means the provider kept rate-limiting us past
	// the bounded number of wait-and-resume cycles.
	ErrRateLimitExceeded = errors.New("source: rate limit exceeded")

	// ErrSourceUnavailable means transient failures persisted past the
	// retry ceiling.
	ErrSourceUnavailable = errors.New("source: provider unavailable")
)
