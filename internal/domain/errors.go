package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals an insert that collided with an existing record
	// (same external identity, or an analysis for an already-analyzed
	// review). Expected outcome of idempotent retries, not a failure.
	ErrDuplicate = errors.New("duplicate record")

	// ErrExternalAPI covers transport/auth/quota failures from the reviews
	// provider or the reasoning service. Never retried inline; the next
	// scheduled pass is the retry mechanism.
	ErrExternalAPI = errors.New("external api failure")

	// ErrAnalysisParse marks a reasoning response that did not validate
	// against the verdict schema. Same retry-by-next-pass policy.
	ErrAnalysisParse = errors.New("unparsable analysis verdict")
)
