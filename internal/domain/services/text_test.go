package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		budget int
		want   string
	}{
		{name: "under budget", input: "short", budget: 10, want: "short"},
		{name: "exactly at budget", input: "0123456789", budget: 10, want: "0123456789"},
		{name: "over budget", input: "abcdefghij", budget: 8, want: "abcde..."},
		{name: "zero budget disables", input: "abcdefghij", budget: 0, want: "abcdefghij"},
		{name: "tiny budget", input: "abcdefghij", budget: 2, want: "ab"},
		{name: "empty", input: "", budget: 5, want: ""},
		{name: "wide runes within budget", input: strings.Repeat("漏", 60), budget: 80, want: strings.Repeat("漏", 60)},
		{name: "wide runes over budget", input: strings.Repeat("漏", 12), budget: 10, want: strings.Repeat("漏", 7) + "..."},
		{name: "emoji counted as one", input: "🔴🟠🟡🟢", budget: 4, want: "🔴🟠🟡🟢"},
		{name: "tiny budget multibyte", input: "ÄÖÜäöü", budget: 2, want: "ÄÖ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.input, tt.budget))
		})
	}
}

func TestTruncate_BudgetLength(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := Truncate(long, 80)

	assert.Len(t, got, 80)
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	assert.Equal(t, strings.Repeat("x", 80-len(Ellipsis)), strings.TrimSuffix(got, Ellipsis))
}

func TestTruncate_EscapeSequences(t *testing.T) {
	input := "abc\x1b[31m" + strings.Repeat("x", 78)
	got := Truncate(input, 80)

	assert.Equal(t, 80, utf8.RuneCountInString(got))
	assert.Equal(t, input[:77]+Ellipsis, got)
	assert.NotContains(t, got, "\x1b[0m")

	short := "ok\x1b[0m"
	assert.Equal(t, short, Truncate(short, 80))
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "no markup here", want: "no markup here"},
		{
			name:  "anchor removed",
			input: `In 2013, <a href="https://example.com" target="_blank">Adobe</a> was breached`,
			want:  "In 2013, Adobe was breached",
		},
		{name: "entities decoded", input: "Tom &amp; Jerry&#39;s", want: "Tom & Jerry's"},
		{name: "block tags separate words", input: "first<br>second", want: "first second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.input))
		})
	}
}

func TestNormalizeDescription(t *testing.T) {
	raw := "<p>A  heap\n\toverflow</p><p>in the parser</p>"

	assert.Equal(t, "A heap overflow in the parser", NormalizeDescription(raw, 0))
	assert.Equal(t, "A heap...", NormalizeDescription(raw, 9))
}

func TestNormalizeDescription_ControlCharacters(t *testing.T) {
	got := NormalizeDescription("red\x1b[31m alert\x00 here", 0)

	assert.Equal(t, "red [31m alert here", got)
	assert.NotContains(t, got, "\x1b")
}
