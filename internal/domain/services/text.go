package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Ellipsis is appended to truncated descriptions
const Ellipsis = "..."

// blockTags separate words when stripped
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true, "tr": true, "td": true,
}

// NormalizeWhitespace collapses every whitespace run into a single space
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripTags removes HTML markup and decodes entities
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}

// Truncate cuts s to budget characters. Longer text keeps budget-len(Ellipsis)
// characters followed by Ellipsis; text within budget is returned unchanged.
// A budget of zero or less disables truncation.
func Truncate(s string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(s) <= budget {
		return s
	}
	runes := []rune(s)
	if budget <= len(Ellipsis) {
		return string(runes[:budget])
	}
	return string(runes[:budget-len(Ellipsis)]) + Ellipsis
}

// dropControl turns control characters into spaces
func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// NormalizeDescription strips markup and control characters, collapses
// whitespace and truncates
func NormalizeDescription(raw string, budget int) string {
	return Truncate(NormalizeWhitespace(dropControl(StripTags(raw))), budget)
}
