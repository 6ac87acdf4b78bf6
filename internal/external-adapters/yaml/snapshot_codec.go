// Package yaml provides YAML and JSON encoding of run snapshots.
package yaml

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

// Format is a snapshot serialization format
type Format string

// Supported formats
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts yaml, yml and json in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errors.Newf("unsupported format %q", s)
	}
}

// ContentType returns the MIME type used when the snapshot is uploaded
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/yaml"
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	if f == FormatJSON {
		return "json"
	}
	return "yml"
}

// SnapshotCodec encodes and parses snapshot documents
type SnapshotCodec struct{}

// NewSnapshotCodec creates a new snapshot codec
func NewSnapshotCodec() *SnapshotCodec {
	return &SnapshotCodec{}
}

// Encode serializes a snapshot
func (c *SnapshotCodec) Encode(snapshot *entities.Snapshot, format Format) ([]byte, error) {
	if snapshot == nil {
		return nil, errors.New("snapshot is nil")
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode JSON")
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snapshot); err != nil {
			return nil, errors.Wrap(err, "failed to encode YAML")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, "failed to encode YAML")
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.Newf("unsupported format %q", format)
	}
}

// ParseFile reads a snapshot file; the format follows the file extension
func (c *SnapshotCodec) ParseFile(filePath string) (*entities.Snapshot, error) {
	//nolint:gosec // G304: filePath is a user-provided snapshot
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", filePath)
	}

	format, err := ParseFormat(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if err != nil {
		format = FormatYAML
	}
	return c.Parse(data, format)
}

// Parse decodes snapshot bytes. YAML is a superset of JSON, but JSON input
// goes through encoding/json so field tags match exactly.
func (c *SnapshotCodec) Parse(data []byte, format Format) (*entities.Snapshot, error) {
	var snapshot entities.Snapshot

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON")
		}
	default:
		if err := yaml.Unmarshal(data, &snapshot); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML")
		}
	}

	if len(snapshot.Vulnerabilities) == 0 && len(snapshot.Breaches) == 0 {
		return nil, errors.New("snapshot has no records")
	}
	for i := range snapshot.Vulnerabilities {
		v := &snapshot.Vulnerabilities[i]
		v.Severity = entities.ParseSeverity(string(v.Severity))
	}
	for i := range snapshot.Breaches {
		if snapshot.Breaches[i].DataClasses == nil {
			snapshot.Breaches[i].DataClasses = []string{}
		}
	}

	return &snapshot, nil
}
