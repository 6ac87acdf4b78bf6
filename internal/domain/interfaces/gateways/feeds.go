// Package gateways defines the contracts for external systems.
package gateways

import (
	"context"
	"time"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// VulnerabilityQuery bounds a request to the vulnerability feed
type VulnerabilityQuery struct {
	ResultsPerPage int
	PubStart       time.Time
	PubEnd         time.Time
}

// VulnerabilityFeed fetches CVE records. Records are mapped from the wire
// format but not yet sorted, trimmed or truncated.
type VulnerabilityFeed interface {
	FetchVulnerabilities(ctx context.Context, query VulnerabilityQuery) ([]entities.VulnerabilityRecord, error)
}

// BreachFeed fetches every published breach
type BreachFeed interface {
	FetchBreaches(ctx context.Context) ([]entities.BreachRecord, error)
}

// ThreatFeedGateway composes both upstream feeds
type ThreatFeedGateway interface {
	VulnerabilityFeed
	BreachFeed
}
