package entities

import "time"

// Snapshot captures everything one run fetched and rendered
type Snapshot struct {
	RunID           string                `json:"run_id" yaml:"run_id"`
	GeneratedAt     time.Time             `json:"generated_at" yaml:"generated_at"`
	Vulnerabilities []VulnerabilityRecord `json:"vulnerabilities" yaml:"vulnerabilities"`
	Breaches        []BreachRecord        `json:"breaches" yaml:"breaches"`
	SectionSHA256   string                `json:"section_sha256,omitempty" yaml:"section_sha256,omitempty"`
	NVDError        string                `json:"nvd_error,omitempty" yaml:"nvd_error,omitempty"`
	HIBPError       string                `json:"hibp_error,omitempty" yaml:"hibp_error,omitempty"`
}

// CountBySeverity tallies real (non-placeholder) vulnerabilities per tier
func (s *Snapshot) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, v := range s.Vulnerabilities {
		if v.Placeholder {
			continue
		}
		counts[v.Severity]++
	}
	return counts
}
