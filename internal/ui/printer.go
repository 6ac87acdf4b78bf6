// Package ui prints human-facing progress and tables with pterm.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/pterm/pterm"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// DescriptionWidth caps the terminal columns of the description column
const DescriptionWidth = 60

// Configure disables colors and spinners when stdout is not a terminal or
// when the caller asks for plain output.
func Configure(plain bool) {
	if plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		pterm.DisableStyling()
		pterm.DisableColor()
	}
}

// StartSpinner shows an activity indicator until Success or Fail is called on it
func StartSpinner(text string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.Start(text)
	return spinner
}

// Success prints a success line
func Success(format string, args ...any) {
	pterm.Success.Printfln(format, args...)
}

// Info prints an informational line
func Info(format string, args ...any) {
	pterm.Info.Printfln(format, args...)
}

// Warning prints a warning line
func Warning(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
}

// Error prints an error line to stderr
func Error(err error) {
	pterm.Error.WithWriter(os.Stderr).Println(err.Error())
}

// PrintSnapshot prints both feeds as tables
func PrintSnapshot(snapshot *entities.Snapshot) {
	if snapshot.NVDError != "" {
		Warning("NVD unavailable: %s", snapshot.NVDError)
	}
	if snapshot.HIBPError != "" {
		Warning("HIBP unavailable: %s", snapshot.HIBPError)
	}

	pterm.DefaultSection.Println("Latest CVEs")
	_ = pterm.DefaultTable.WithHasHeader().WithData(VulnerabilityTable(snapshot.Vulnerabilities)).Render()

	pterm.DefaultSection.Println("Recent breaches")
	_ = pterm.DefaultTable.WithHasHeader().WithData(BreachTable(snapshot.Breaches)).Render()
}

// VulnerabilityTable builds table rows for CVE records, header first
func VulnerabilityTable(vulns []entities.VulnerabilityRecord) [][]string {
	data := [][]string{
		{"Severity", "CVE", "CVSS", "Published", "Description"},
	}
	for _, v := range vulns {
		score := entities.NotAvailable
		if v.HasScore() {
			score = strconv.FormatFloat(*v.Score, 'f', 1, 64)
		}
		data = append(data, []string{
			severityLabel(v.Severity),
			v.ID,
			score,
			v.PublishedDate,
			fitWidth(v.Description, DescriptionWidth),
		})
	}
	return data
}

// BreachTable builds table rows for breach records, header first
func BreachTable(breaches []entities.BreachRecord) [][]string {
	data := [][]string{
		{"Breach", "Accounts", "Added", "Data"},
	}
	for _, b := range breaches {
		count := entities.NotAvailable
		if !b.Placeholder {
			count = strconv.FormatInt(b.PwnCount, 10)
		}
		classes := "-"
		if len(b.DataClasses) > 0 {
			classes = strings.Join(b.DataClasses, ", ")
		}
		data = append(data, []string{
			pterm.FgCyan.Sprint(b.Name),
			count,
			b.AddedDate,
			classes,
		})
	}
	return data
}

func severityLabel(s entities.Severity) string {
	switch s {
	case entities.SeverityCritical, entities.SeverityHigh:
		return pterm.FgRed.Sprint(string(s))
	case entities.SeverityMedium:
		return pterm.FgYellow.Sprint(string(s))
	case entities.SeverityLow:
		return pterm.FgBlue.Sprint(string(s))
	default:
		return pterm.FgGray.Sprint(string(s))
	}
}

// fitWidth shortens s to at most width terminal columns
func fitWidth(s string, width uint) string {
	if uint(ansi.PrintableRuneWidth(s)) <= width {
		return s
	}
	return truncate.StringWithTail(s, width, "...")
}
