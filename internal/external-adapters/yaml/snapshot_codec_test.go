package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

func testSnapshot() *entities.Snapshot {
	score := 9.8
	return &entities.Snapshot{
		RunID:       "7d1c6a9e-0000-4000-8000-000000000001",
		GeneratedAt: time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC),
		Vulnerabilities: []entities.VulnerabilityRecord{
			{
				ID:            "CVE-2024-1234",
				Description:   "Buffer overflow",
				Score:         &score,
				ScoreVersion:  "3.1",
				Severity:      entities.SeverityCritical,
				PublishedDate: "2024-05-01",
			},
			entities.PlaceholderVulnerability(),
		},
		Breaches: []entities.BreachRecord{
			{Name: "Adobe", PwnCount: 152445165, AddedDate: "2013-12-04", DataClasses: []string{"Email addresses"}},
		},
		HIBPError: "hibp feed: unexpected status 503",
	}
}

func TestSnapshotCodec_EncodeYAML(t *testing.T) {
	codec := NewSnapshotCodec()

	data, err := codec.Encode(testSnapshot(), FormatYAML)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"run_id: 7d1c6a9e-0000-4000-8000-000000000001",
		"  - id: CVE-2024-1234",
		"    score: 9.8",
		"    severity: CRITICAL",
		"    placeholder: true",
		"    pwn_count: 152445165",
		"hibp_error: 'hibp feed: unexpected status 503'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "nvd_error") {
		t.Error("empty nvd_error should be omitted")
	}
}

func TestSnapshotCodec_ParseJSON(t *testing.T) {
	codec := NewSnapshotCodec()
	data, err := codec.Encode(testSnapshot(), FormatJSON)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	snapshot, err := codec.Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(snapshot.Vulnerabilities) != 2 {
		t.Fatalf("Vulnerabilities = %d, want 2", len(snapshot.Vulnerabilities))
	}
	if got := *snapshot.Vulnerabilities[0].Score; got != 9.8 {
		t.Errorf("Score = %v, want 9.8", got)
	}
	if !snapshot.Vulnerabilities[1].Placeholder {
		t.Error("placeholder flag lost")
	}
	if snapshot.Vulnerabilities[1].Score != nil {
		t.Error("placeholder should stay unscored")
	}
}

func TestSnapshotCodec_ParseNormalizesSeverity(t *testing.T) {
	codec := NewSnapshotCodec()
	data := []byte(`
vulnerabilities:
  - id: CVE-2024-0001
    severity: high
  - id: CVE-2024-0002
    severity: bogus
breaches:
  - name: Example
`)

	snapshot, err := codec.Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if snapshot.Vulnerabilities[0].Severity != entities.SeverityHigh {
		t.Errorf("Severity = %v, want HIGH", snapshot.Vulnerabilities[0].Severity)
	}
	if snapshot.Vulnerabilities[1].Severity != entities.SeverityUnknown {
		t.Errorf("Severity = %v, want UNKNOWN", snapshot.Vulnerabilities[1].Severity)
	}
	if snapshot.Breaches[0].DataClasses == nil {
		t.Error("DataClasses should default to empty slice")
	}
}

func TestSnapshotCodec_ParseErrors(t *testing.T) {
	codec := NewSnapshotCodec()

	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"empty document", "", FormatYAML},
		{"no records", "run_id: abc\n", FormatYAML},
		{"invalid yaml", "vulnerabilities: [", FormatYAML},
		{"invalid json", "{", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Parse([]byte(tt.data), tt.format); err == nil {
				t.Error("Parse() expected error, got nil")
			}
		})
	}
}

func TestSnapshotCodec_ParseFile(t *testing.T) {
	codec := NewSnapshotCodec()
	dir := t.TempDir()

	data, err := codec.Encode(testSnapshot(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	snapshot, err := codec.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if snapshot.RunID != testSnapshot().RunID {
		t.Errorf("RunID = %s, want %s", snapshot.RunID, testSnapshot().RunID)
	}

	if _, err := codec.ParseFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("ParseFile() expected error for missing file")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"YML", FormatYAML, false},
		{" json ", FormatJSON, false},
		{"toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
