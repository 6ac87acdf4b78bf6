package services

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// MarkerSplicer replaces the first start..end marker span of a document.
// It implements services.Splicer.
type MarkerSplicer struct {
	start string
	end   string
}

// NewSplicer creates a splicer for the given marker pair
func NewSplicer(start, end string) *MarkerSplicer {
	if start == "" {
		start = DefaultStartMarker
	}
	if end == "" {
		end = DefaultEndMarker
	}
	return &MarkerSplicer{start: start, end: end}
}

// Splice swaps the span from the first start marker through the following
// end marker, both inclusive, for section. The section must carry its own
// markers so the result can be spliced again.
// Pure business logic - no I/O
func (s *MarkerSplicer) Splice(document, section string) (string, error) {
	if !strings.HasPrefix(section, s.start) || !strings.HasSuffix(section, s.end) {
		return "", errors.Wrapf(entities.ErrInvalidSection, "expected %q ... %q", s.start, s.end)
	}

	from, to, err := s.locate(document)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(document) - (to - from) + len(section))
	b.WriteString(document[:from])
	b.WriteString(section)
	b.WriteString(document[to:])
	return b.String(), nil
}

// Extract returns the current marker span, markers included
func (s *MarkerSplicer) Extract(document string) (string, error) {
	from, to, err := s.locate(document)
	if err != nil {
		return "", err
	}
	return document[from:to], nil
}

// locate returns the byte range [from, to) of the first marker span
func (s *MarkerSplicer) locate(document string) (int, int, error) {
	from := strings.Index(document, s.start)
	if from < 0 {
		return 0, 0, errors.Wrapf(entities.ErrMarkersNotFound, "start marker %q", s.start)
	}

	rel := strings.Index(document[from+len(s.start):], s.end)
	if rel < 0 {
		return 0, 0, errors.Wrapf(entities.ErrMarkersNotFound, "end marker %q after start", s.end)
	}

	to := from + len(s.start) + rel + len(s.end)
	return from, to, nil
}
