package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// Default markers delimiting the generated section
const (
	DefaultStartMarker = "<!-- SECURITY-START -->"
	DefaultEndMarker   = "<!-- SECURITY-END -->"
)

// IndicatorStyle selects how severities are drawn
type IndicatorStyle string

// Supported indicator styles
const (
	IndicatorEmoji IndicatorStyle = "emoji"
	IndicatorBadge IndicatorStyle = "badge"
)

const (
	nvdDetailURL    = "https://nvd.nist.gov/vuln/detail/"
	hibpBreachURL   = "https://haveibeenpwned.com/PwnedWebsites#"
	shieldsBadgeURL = "https://img.shields.io/badge/"
	stampLayout     = "2006-01-02 15:04 UTC"
)

var cveIDPattern = regexp.MustCompile(`^CVE-[0-9]{4}-[0-9]{4,}$`)

var emojiIndicators = map[entities.Severity]string{
	entities.SeverityCritical: "🔴",
	entities.SeverityHigh:     "🟠",
	entities.SeverityMedium:   "🟡",
	entities.SeverityLow:      "🟢",
	entities.SeverityUnknown:  "⚪",
}

var badgeColors = map[entities.Severity]string{
	entities.SeverityCritical: "critical",
	entities.SeverityHigh:     "orange",
	entities.SeverityMedium:   "yellow",
	entities.SeverityLow:      "brightgreen",
	entities.SeverityUnknown:  "lightgrey",
}

// RenderOptions controls the generated Markdown
type RenderOptions struct {
	Title               string
	VulnerabilityHeader string
	BreachHeader        string
	IndicatorStyle      IndicatorStyle
	StartMarker         string
	EndMarker           string
}

// DefaultRenderOptions returns the layout of the published README section
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Title:               "🛰️ Threat Intelligence Feed",
		VulnerabilityHeader: "⚠️ Latest CVEs (NIST)",
		BreachHeader:        "💥 Recent Breaches (HIBP)",
		IndicatorStyle:      IndicatorEmoji,
		StartMarker:         DefaultStartMarker,
		EndMarker:           DefaultEndMarker,
	}
}

// Formatter renders records as Markdown table cells. It implements
// services.SectionRenderer.
type Formatter struct {
	opts    RenderOptions
	printer *message.Printer
}

// NewFormatter creates a formatter, filling unset options with defaults
func NewFormatter(opts RenderOptions) *Formatter {
	def := DefaultRenderOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.VulnerabilityHeader == "" {
		opts.VulnerabilityHeader = def.VulnerabilityHeader
	}
	if opts.BreachHeader == "" {
		opts.BreachHeader = def.BreachHeader
	}
	if opts.IndicatorStyle == "" {
		opts.IndicatorStyle = def.IndicatorStyle
	}
	if opts.StartMarker == "" {
		opts.StartMarker = def.StartMarker
	}
	if opts.EndMarker == "" {
		opts.EndMarker = def.EndMarker
	}
	return &Formatter{
		opts:    opts,
		printer: message.NewPrinter(language.English),
	}
}

// RenderSeverityIndicator returns the glyph for a severity tier.
// Unknown or unrecognised tiers get the neutral glyph.
func (f *Formatter) RenderSeverityIndicator(severity entities.Severity) string {
	severity = entities.ParseSeverity(string(severity))
	if f.opts.IndicatorStyle == IndicatorBadge {
		return fmt.Sprintf("![%s](%sseverity-%s-%s)",
			severity, shieldsBadgeURL, severity, badgeColors[severity])
	}
	return emojiIndicators[severity]
}

// RenderRow renders one table row pairing a CVE with a breach
func (f *Formatter) RenderRow(vuln entities.VulnerabilityRecord, breach entities.BreachRecord) string {
	return fmt.Sprintf("| %s | %s |", f.vulnerabilityCell(vuln), f.breachCell(breach))
}

// RenderRows zips both sequences positionally; the row count is the
// length of the shorter one
func (f *Formatter) RenderRows(vulns []entities.VulnerabilityRecord, breaches []entities.BreachRecord) []string {
	n := min(len(vulns), len(breaches))
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, f.RenderRow(vulns[i], breaches[i]))
	}
	return rows
}

// RenderSection renders the full marker-wrapped section
func (f *Formatter) RenderSection(vulns []entities.VulnerabilityRecord, breaches []entities.BreachRecord, now time.Time) string {
	var b strings.Builder

	b.WriteString(f.opts.StartMarker)
	b.WriteString("\n## ")
	b.WriteString(f.opts.Title)
	b.WriteString("\n*Auto-updated daily · ")
	b.WriteString(now.UTC().Format(stampLayout))
	b.WriteString("*\n\n")

	fmt.Fprintf(&b, "| %s | %s |\n| :--- | :--- |\n", f.opts.VulnerabilityHeader, f.opts.BreachHeader)
	for _, row := range f.RenderRows(vulns, breaches) {
		b.WriteString(row)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(f.opts.EndMarker)
	return b.String()
}

func (f *Formatter) vulnerabilityCell(v entities.VulnerabilityRecord) string {
	id := EscapeCell(v.ID)
	if !v.Placeholder && cveIDPattern.MatchString(v.ID) {
		id = fmt.Sprintf("[**%s**](%s%s)", v.ID, nvdDetailURL, url.PathEscape(v.ID))
	} else {
		id = "**" + id + "**"
	}

	score := entities.NotAvailable
	if v.Score != nil {
		score = fmt.Sprintf("%.1f", *v.Score)
	}

	return fmt.Sprintf("%s <br> **CVSS %s** %s <br> %s",
		id, score, f.RenderSeverityIndicator(v.Severity), EscapeCell(v.Description))
}

func (f *Formatter) breachCell(b entities.BreachRecord) string {
	name := "**" + EscapeCell(b.Name) + "**"
	if !b.Placeholder && b.Name != "" {
		name = fmt.Sprintf("[%s](%s%s)", name, hibpBreachURL, url.PathEscape(b.Name))
	}

	count := entities.NotAvailable
	if !b.Placeholder {
		count = f.printer.Sprintf("%d", b.PwnCount)
	}
	cell := fmt.Sprintf("%s • %s accts", name, count)

	if len(b.DataClasses) == 0 {
		return cell
	}
	classes := make([]string, 0, len(b.DataClasses))
	for _, c := range b.DataClasses {
		classes = append(classes, "`"+EscapeCode(c)+"`")
	}
	return cell + " <br> " + strings.Join(classes, " · ")
}

var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
	`<`, `&lt;`,
	`>`, `&gt;`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

var codeEscaper = strings.NewReplacer(
	"`", "'",
	`|`, `\|`,
	"\n", " ",
)

// EscapeCell makes upstream text safe inside a Markdown table cell.
// Emphasis, links, HTML and column separators are neutralised.
func EscapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// EscapeCode makes text safe inside an inline code span in a table cell
func EscapeCode(s string) string {
	return codeEscaper.Replace(s)
}
