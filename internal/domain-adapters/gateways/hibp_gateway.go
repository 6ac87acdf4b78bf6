package gateways

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// DefaultHIBPURL lists every breach known to HaveIBeenPwned. No key is needed.
const DefaultHIBPURL = "https://haveibeenpwned.com/api/v3/breaches"

// HIBPGateway fetches the public breach list from HaveIBeenPwned
type HIBPGateway struct {
	apiURL string
	http   *feedClient
}

// NewHIBPGateway creates a new HIBP gateway. An empty apiURL uses DefaultHIBPURL.
func NewHIBPGateway(apiURL string, opts HTTPOptions) *HIBPGateway {
	if apiURL == "" {
		apiURL = DefaultHIBPURL
	}
	return &HIBPGateway{
		apiURL: apiURL,
		http:   newFeedClient(entities.FeedHIBP, opts),
	}
}

// FetchBreaches returns all breaches in API order. Entries without a Name
// are skipped; a list where none has one is a payload error.
func (g *HIBPGateway) FetchBreaches(ctx context.Context) ([]entities.BreachRecord, error) {
	var breaches []HIBPBreach
	if err := g.http.getJSON(ctx, g.apiURL, nil, &breaches); err != nil {
		return nil, err
	}
	if breaches == nil {
		return nil, g.http.fail(entities.FeedErrorPayload, 0, errors.New("response is not a breach list"))
	}

	records := make([]entities.BreachRecord, 0, len(breaches))
	for _, b := range breaches {
		if b.Name == "" {
			continue
		}
		records = append(records, b.toRecord())
	}
	if len(records) == 0 && len(breaches) > 0 {
		return nil, g.http.fail(entities.FeedErrorPayload, 0,
			errors.Newf("none of %d breaches carry a Name", len(breaches)))
	}
	return records, nil
}

// HIBPBreach is a breach as returned by /api/v3/breaches
type HIBPBreach struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	AddedDate   string   `json:"AddedDate"`
	PwnCount    int64    `json:"PwnCount"`
	Description string   `json:"Description"`
	DataClasses []string `json:"DataClasses"`
	IsVerified  bool     `json:"IsVerified"`
}

func (b HIBPBreach) toRecord() entities.BreachRecord {
	record := entities.BreachRecord{
		Name:        b.Name,
		Title:       b.Title,
		Domain:      b.Domain,
		PwnCount:    b.PwnCount,
		AddedDate:   entities.NotAvailable,
		Description: b.Description,
		DataClasses: b.DataClasses,
	}
	if record.DataClasses == nil {
		record.DataClasses = []string{}
	}

	if at, err := time.Parse(time.RFC3339, b.AddedDate); err == nil {
		record.AddedAt = at.UTC()
		record.AddedDate = record.AddedAt.Format("2006-01-02")
	}
	return record
}
