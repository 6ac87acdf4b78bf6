// Package entities holds the threat feed domain model.
package entities

import (
	"strings"
	"time"
)

// Severity is a CVSS severity tier
type Severity string

// Severity tiers reported by the NVD
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity maps a raw severity label onto a known tier.
// Anything unrecognised, including the empty string, is SeverityUnknown.
func ParseSeverity(raw string) Severity {
	switch s := Severity(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return s
	default:
		return SeverityUnknown
	}
}

// SeverityFromScore derives a tier from a CVSS v3/v4 base score
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// NotAvailable is the sentinel text carried by placeholder records
const NotAvailable = "N/A"

// VulnerabilityRecord is one normalized CVE entry
type VulnerabilityRecord struct {
	ID            string   `json:"id" yaml:"id"`
	Description   string   `json:"description" yaml:"description"`
	Score         *float64 `json:"score,omitempty" yaml:"score,omitempty"` // nil when no CVSS metric was published
	ScoreVersion  string   `json:"score_version,omitempty" yaml:"score_version,omitempty"`
	Severity      Severity `json:"severity" yaml:"severity"`
	PublishedDate string   `json:"published_date" yaml:"published_date"` // YYYY-MM-DD
	Placeholder   bool     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// PublishedAt keeps the full timestamp for ordering
	PublishedAt time.Time `json:"-" yaml:"-"`
}

// HasScore reports whether a CVSS score is known
func (v VulnerabilityRecord) HasScore() bool {
	return v.Score != nil
}

// PlaceholderVulnerability returns the record rendered when the feed is unavailable
func PlaceholderVulnerability() VulnerabilityRecord {
	return VulnerabilityRecord{
		ID:            NotAvailable,
		Description:   NotAvailable,
		Severity:      SeverityUnknown,
		PublishedDate: NotAvailable,
		Placeholder:   true,
	}
}
