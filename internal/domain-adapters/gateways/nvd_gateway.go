package gateways

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/gateways"
)

// DefaultNVDURL is the NVD CVE API 2.0 endpoint
const DefaultNVDURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// nvdTimeLayout is the extended ISO-8601 form accepted by pubStartDate/pubEndDate
const nvdTimeLayout = "2006-01-02T15:04:05.000"

// NVDGateway fetches recently published CVEs from the NVD API
type NVDGateway struct {
	apiURL string
	apiKey string
	http   *feedClient
}

// NewNVDGateway creates a new NVD gateway. An empty apiURL uses DefaultNVDURL;
// apiKey is optional and raises the NVD rate limit.
func NewNVDGateway(apiURL, apiKey string, opts HTTPOptions) *NVDGateway {
	if apiURL == "" {
		apiURL = DefaultNVDURL
	}
	return &NVDGateway{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   newFeedClient(entities.FeedNVD, opts),
	}
}

// FetchVulnerabilities returns up to query.ResultsPerPage CVEs from the end of
// the publication window. NVD pages oldest first, so when the window holds
// more results than one page a second request reads the last page.
func (g *NVDGateway) FetchVulnerabilities(ctx context.Context, query gateways.VulnerabilityQuery) ([]entities.VulnerabilityRecord, error) {
	perPage := query.ResultsPerPage
	if perPage <= 0 {
		perPage = 100
	}

	resp, err := g.fetchPage(ctx, query, perPage, 0)
	if err != nil {
		return nil, err
	}

	if resp.TotalResults > perPage && len(resp.Vulnerabilities) == perPage {
		resp, err = g.fetchPage(ctx, query, perPage, resp.TotalResults-perPage)
		if err != nil {
			return nil, err
		}
	}

	records := make([]entities.VulnerabilityRecord, 0, len(resp.Vulnerabilities))
	for _, item := range resp.Vulnerabilities {
		if item.CVE.ID == "" {
			continue
		}
		records = append(records, item.CVE.toRecord())
	}
	if len(records) == 0 && len(resp.Vulnerabilities) > 0 {
		return nil, g.http.fail(entities.FeedErrorPayload, 0,
			errors.Newf("none of %d vulnerabilities carry a CVE id", len(resp.Vulnerabilities)))
	}
	return records, nil
}

func (g *NVDGateway) fetchPage(ctx context.Context, query gateways.VulnerabilityQuery, perPage, startIndex int) (*NVDResponse, error) {
	params := url.Values{}
	params.Set("resultsPerPage", strconv.Itoa(perPage))
	if startIndex > 0 {
		params.Set("startIndex", strconv.Itoa(startIndex))
	}
	// NVD requires both bounds when either is present
	if !query.PubStart.IsZero() && !query.PubEnd.IsZero() {
		params.Set("pubStartDate", query.PubStart.UTC().Format(nvdTimeLayout))
		params.Set("pubEndDate", query.PubEnd.UTC().Format(nvdTimeLayout))
	}

	header := http.Header{}
	if g.apiKey != "" {
		header.Set("apiKey", g.apiKey)
	}

	var resp NVDResponse
	if err := g.http.getJSON(ctx, g.apiURL+"?"+params.Encode(), header, &resp); err != nil {
		return nil, err
	}
	// A missing or null list is an error document, not an empty window
	if resp.Vulnerabilities == nil {
		return nil, g.http.fail(entities.FeedErrorPayload, 0, errors.New("response has no vulnerabilities list"))
	}
	return &resp, nil
}

// NVD API request/response types

// NVDResponse is one page of the CVE API
type NVDResponse struct {
	ResultsPerPage  int       `json:"resultsPerPage"`
	StartIndex      int       `json:"startIndex"`
	TotalResults    int       `json:"totalResults"`
	Vulnerabilities []NVDItem `json:"vulnerabilities"`
}

// NVDItem wraps a single CVE
type NVDItem struct {
	CVE NVDCVE `json:"cve"`
}

// NVDCVE is the subset of a CVE item used by the feed
type NVDCVE struct {
	ID           string           `json:"id"`
	Published    string           `json:"published"`
	VulnStatus   string           `json:"vulnStatus,omitempty"`
	Descriptions []NVDDescription `json:"descriptions"`
	Metrics      NVDMetrics       `json:"metrics"`
}

// NVDDescription is a localized description
type NVDDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// NVDMetrics holds CVSS metrics per version
type NVDMetrics struct {
	V40 []NVDMetric `json:"cvssMetricV40,omitempty"`
	V31 []NVDMetric `json:"cvssMetricV31,omitempty"`
	V30 []NVDMetric `json:"cvssMetricV30,omitempty"`
	V2  []NVDMetric `json:"cvssMetricV2,omitempty"`
}

// NVDMetric is one scoring of a CVE. V2 reports severity beside cvssData.
type NVDMetric struct {
	Source       string      `json:"source"`
	Type         string      `json:"type"`
	CVSSData     NVDCVSSData `json:"cvssData"`
	BaseSeverity string      `json:"baseSeverity,omitempty"`
}

// NVDCVSSData carries the base score
type NVDCVSSData struct {
	Version      string  `json:"version"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity,omitempty"`
}

func (c NVDCVE) toRecord() entities.VulnerabilityRecord {
	record := entities.VulnerabilityRecord{
		ID:            c.ID,
		Description:   c.description(),
		Severity:      entities.SeverityUnknown,
		PublishedDate: entities.NotAvailable,
	}

	if at, ok := parseNVDTime(c.Published); ok {
		record.PublishedAt = at
		record.PublishedDate = at.Format("2006-01-02")
	}

	if metric, version, ok := c.Metrics.preferred(); ok {
		score := metric.CVSSData.BaseScore
		record.Score = &score
		record.ScoreVersion = version

		severity := metric.CVSSData.BaseSeverity
		if severity == "" {
			severity = metric.BaseSeverity
		}
		record.Severity = entities.ParseSeverity(severity)
		if record.Severity == entities.SeverityUnknown {
			record.Severity = entities.SeverityFromScore(score)
		}
	}

	return record
}

// description prefers English and falls back to the first entry
func (c NVDCVE) description() string {
	for _, d := range c.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(c.Descriptions) > 0 {
		return c.Descriptions[0].Value
	}
	return ""
}

// preferred picks the newest CVSS version present, primary source first
func (m NVDMetrics) preferred() (NVDMetric, string, bool) {
	for _, set := range []struct {
		version string
		metrics []NVDMetric
	}{
		{"4.0", m.V40}, {"3.1", m.V31}, {"3.0", m.V30}, {"2.0", m.V2},
	} {
		if len(set.metrics) == 0 {
			continue
		}
		for _, metric := range set.metrics {
			if metric.Type == "Primary" {
				return metric, set.version, true
			}
		}
		return set.metrics[0], set.version, true
	}
	return NVDMetric{}, "", false
}

func parseNVDTime(s string) (time.Time, bool) {
	for _, layout := range []string{nvdTimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
