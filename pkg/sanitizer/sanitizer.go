// Package sanitizer normalizes user-supplied display strings before they
// are validated or stored. It never rejects input; rejection is the
// validator's job.
package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// stripControl replaces control characters with a space rather than
// deleting them, so a newline inside a label survives as a separator
// once collapseWhitespace folds it.
func stripControl(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			result.WriteRune(' ')
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

func collapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}
	return result.String()
}

// SanitizeLabel cleans free-form display fields such as the station name
// or the vehicle type descriptor.
func SanitizeLabel(input string) string {
	p := Pipeline{
		stripControl,
		collapseWhitespace,
	}
	return p.Apply(input)
}

// SanitizeNIC normalizes a national identity card number for use as a
// cache key: uppercase, no interior whitespace.
func SanitizeNIC(input string) string {
	p := Pipeline{
		stripControl,
		collapseWhitespace,
		func(s string) string { return strings.ReplaceAll(s, " ", "") },
		strings.ToUpper,
	}
	return p.Apply(input)
}
