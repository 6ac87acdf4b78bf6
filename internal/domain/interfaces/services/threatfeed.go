// Package services defines interfaces for domain service contracts.
package services

import (
	"context"
	"time"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// FeedService fetches normalized records. Both methods always return exactly
// count records and never fail; fetch problems are reported in FeedResult.Err.
type FeedService interface {
	FetchVulnerabilities(ctx context.Context, count int) entities.FeedResult[entities.VulnerabilityRecord]
	FetchBreaches(ctx context.Context, count int) entities.FeedResult[entities.BreachRecord]
}

// SectionRenderer turns records into the Markdown section placed between markers
type SectionRenderer interface {
	RenderSeverityIndicator(severity entities.Severity) string
	RenderRow(vuln entities.VulnerabilityRecord, breach entities.BreachRecord) string
	RenderRows(vulns []entities.VulnerabilityRecord, breaches []entities.BreachRecord) []string
	RenderSection(vulns []entities.VulnerabilityRecord, breaches []entities.BreachRecord, now time.Time) string
}

// Splicer replaces the marker-delimited span of a document
type Splicer interface {
	Splice(document, section string) (string, error)
}
