package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/threatfeed/internal/domain/interfaces"
)

func TestZerologLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatJSON, "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("fetched", interfaces.F("feed", "nvd"), interfaces.F("count", 5))
	logger.Warn("feed unavailable", interfaces.Err(errors.New("status 503")), interfaces.F("took", 1500*time.Millisecond))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "debug must be filtered at info level")

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "fetched", first["message"])
	assert.Equal(t, "nvd", first["feed"])
	assert.EqualValues(t, 5, first["count"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "status 503", second["error"])
	assert.Contains(t, second, "took")
}

func TestZerologLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatConsole, "debug")
	require.NoError(t, err)

	logger.Debug("padding feed", interfaces.F("missing", 2))

	out := buf.String()
	assert.Contains(t, out, "padding feed")
	assert.Contains(t, out, "missing=")
}

func TestZerologLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"info", false},
		{"DEBUG", false},
		{"", false},
		{"trace", false},
		{"loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := New(&bytes.Buffer{}, FormatJSON, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestZerologLogger_ImplementsLogger(_ *testing.T) {
	var _ interfaces.Logger = (*ZerologLogger)(nil)
}
