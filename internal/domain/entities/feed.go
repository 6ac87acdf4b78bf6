package entities

import "fmt"

// Feed names used in logs, errors and snapshots
const (
	FeedNVD  = "nvd"
	FeedHIBP = "hibp"
)

// FeedErrorKind classifies why a feed could not be used
type FeedErrorKind string

// Feed failure classes
const (
	FeedErrorTransport FeedErrorKind = "transport"
	FeedErrorStatus    FeedErrorKind = "status"
	FeedErrorPayload   FeedErrorKind = "payload"
)

// FeedError carries the cause of a failed fetch
type FeedError struct {
	Feed       string
	Kind       FeedErrorKind
	StatusCode int
	Cause      error
}

func (e *FeedError) Error() string {
	if e.Kind == FeedErrorStatus {
		return fmt.Sprintf("%s feed: unexpected status %d", e.Feed, e.StatusCode)
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s feed: %s error", e.Feed, e.Kind)
	}
	return fmt.Sprintf("%s feed: %s error: %v", e.Feed, e.Kind, e.Cause)
}

func (e *FeedError) Unwrap() error {
	return e.Cause
}

// FeedResult is the outcome of a fetch. Records always has the requested
// length; when Err is set the records are placeholders.
type FeedResult[T any] struct {
	Records []T
	Err     error
}

// Failed reports whether the feed fell back to placeholders
func (r FeedResult[T]) Failed() bool {
	return r.Err != nil
}
