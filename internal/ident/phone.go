// Package ident holds the small identity helpers shared across the
// service: phone normalization and random code generation.
package ident

import (
	"regexp"
	"strings"
)

// phonePattern accepts loosely formatted international numbers: an
// optional plus, a 1-3 digit country code, then up to four digit groups
// separated by whitespace (the last group is optional).
var phonePattern = regexp.MustCompile(`\+?(\d{1,3})\s*(\d{1,4})\s*(\d{1,4})\s*(\d{1,4})\s*(\d{1,4})?`)

// NormalizePhone reduces a loosely formatted phone number to the
// canonical "+{country}{area}{groups...}" form. The second return value
// is false when the input does not contain a recognizable number.
func NormalizePhone(raw string) (string, bool) {
	m := phonePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	var b strings.Builder
	b.WriteByte('+')
	b.WriteString(m[1]) // country
	b.WriteString(m[2]) // area
	b.WriteString(m[3])
	b.WriteString(m[4])
	if m[5] != "" {
		b.WriteString(m[5])
	}
	return b.String(), true
}
