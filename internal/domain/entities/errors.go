package entities

import "github.com/cockroachdb/errors"

// Sentinel errors shared by services and adapters. Match with errors.Is.
var (
	// ErrDocumentNotFound is returned when the target file does not exist
	ErrDocumentNotFound = errors.New("document not found")

	// ErrMarkersNotFound is returned when the start or end marker is missing
	ErrMarkersNotFound = errors.New("markers not found")

	// ErrInvalidSection is returned when a rendered section lacks its own markers
	ErrInvalidSection = errors.New("section does not embed markers")

	// ErrFeedUnavailable marks a run aborted in strict mode because a feed failed
	ErrFeedUnavailable = errors.New("feed unavailable")
)
