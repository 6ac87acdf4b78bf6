package yaml

import (
	"testing"
)

// FuzzSnapshotCodec checks that parsing arbitrary snapshot input never panics.
//
// Run with: go test -fuzz=FuzzSnapshotCodec -fuzztime=30s
func FuzzSnapshotCodec(f *testing.F) {
	f.Add([]byte(`run_id: abc
vulnerabilities:
  - id: CVE-2024-1234
    score: 9.8
    severity: CRITICAL
breaches:
  - name: Adobe
    pwn_count: 152445165
    data_classes: [Email addresses, Passwords]
`))
	f.Add([]byte(`{"vulnerabilities":[{"id":"N/A","placeholder":true}],"breaches":[]}`))

	f.Add([]byte(``))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`vulnerabilities: 5`))
	f.Add([]byte(`vulnerabilities:\n  - score: high`))

	codec := NewSnapshotCodec()

	f.Fuzz(func(_ *testing.T, data []byte) {
		_, _ = codec.Parse(data, FormatYAML)
		_, _ = codec.Parse(data, FormatJSON)
	})
}
