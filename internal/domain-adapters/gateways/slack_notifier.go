package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// SlackNotifier posts a run summary to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a notifier for webhookURL. channel may be empty.
func NewSlackNotifier(webhookURL, channel string, timeout time.Duration) *SlackNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: timeout},
	}
}

// NotifyUpdate sends the severity breakdown and the listed records
func (s *SlackNotifier) NotifyUpdate(ctx context.Context, snapshot *entities.Snapshot) error {
	return s.sendMessage(ctx, buildSlackMessage(s.channel, snapshot))
}

func buildSlackMessage(channel string, snapshot *entities.Snapshot) slackMessage {
	counts := snapshot.CountBySeverity()

	color := "good"
	switch {
	case snapshot.NVDError != "" || snapshot.HIBPError != "":
		color = "warning"
	case counts[entities.SeverityCritical] > 0:
		color = "danger"
	}

	attachments := []slackAttachment{
		{
			Color: color,
			Title: fmt.Sprintf("Summary (%d CVEs, %d breaches)", len(snapshot.Vulnerabilities), len(snapshot.Breaches)),
			Fields: []slackField{
				{Title: "Critical", Value: fmt.Sprintf("%d", counts[entities.SeverityCritical]), Short: true},
				{Title: "High", Value: fmt.Sprintf("%d", counts[entities.SeverityHigh]), Short: true},
				{Title: "Medium", Value: fmt.Sprintf("%d", counts[entities.SeverityMedium]), Short: true},
				{Title: "Low", Value: fmt.Sprintf("%d", counts[entities.SeverityLow]), Short: true},
			},
			Footer: "threatfeed run " + snapshot.RunID,
		},
	}

	var cves strings.Builder
	for _, v := range snapshot.Vulnerabilities {
		if v.Placeholder {
			continue
		}
		score := entities.NotAvailable
		if v.Score != nil {
			score = fmt.Sprintf("%.1f", *v.Score)
		}
		fmt.Fprintf(&cves, "• *%s* (%s, %s)\n", v.ID, score, v.Severity)
	}
	if cves.Len() > 0 {
		attachments = append(attachments, slackAttachment{Color: color, Title: "⚠️ Latest CVEs", Text: cves.String()})
	}

	var breaches strings.Builder
	for _, b := range snapshot.Breaches {
		if b.Placeholder {
			continue
		}
		fmt.Fprintf(&breaches, "• *%s* - %d accounts\n", b.Name, b.PwnCount)
	}
	if breaches.Len() > 0 {
		attachments = append(attachments, slackAttachment{Color: color, Title: "💥 Recent Breaches", Text: breaches.String()})
	}

	for _, failure := range []string{snapshot.NVDError, snapshot.HIBPError} {
		if failure != "" {
			attachments = append(attachments, slackAttachment{Color: "warning", Title: "Feed unavailable", Text: failure})
		}
	}

	return slackMessage{
		Channel:     channel,
		Username:    "threatfeed",
		IconEmoji:   ":satellite:",
		Text:        fmt.Sprintf("🛰️ *Threat feed updated* · %s", snapshot.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")),
		Attachments: attachments,
	}
}

func (s *SlackNotifier) sendMessage(ctx context.Context, msg slackMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal slack message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send slack message")
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("slack returned non-200 status: %d", resp.StatusCode)
	}

	return nil
}
