// Package csvfile handles the wire quirks of uploaded surveillance exports:
// mixed newline conventions, byte-order marks, comma or semicolon delimiters,
// quoted fields, and unstable header spellings.
package csvfile

import (
	"regexp"
	"strings"
)

const bom = "\uFEFF"

var (
	newlineRe    = regexp.MustCompile(`\r\n|\r|\n`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// SplitLines splits file content on any newline convention, strips a leading
// BOM, and drops empty trailing lines.
func SplitLines(data []byte) []string {
	lines := newlineRe.Split(strings.TrimPrefix(string(data), bom), -1)
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// DetectDelimiter picks the delimiter used by the header line: whichever of
// comma and semicolon occurs more often, comma on a tie.
func DetectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// NormalizeHeader turns an export header cell into a stable lookup key: BOM
// stripped, trimmed, lower-cased, internal whitespace collapsed to a single
// underscore. "Onset  Date " and "onset_date" normalize identically.
func NormalizeHeader(field string) string {
	field = strings.TrimSpace(strings.ReplaceAll(field, bom, ""))
	return whitespaceRe.ReplaceAllString(strings.ToLower(field), "_")
}

// ParseRecord splits one line into fields. A field may be wrapped in double
// quotes; inside a quoted field the delimiter is literal and a doubled quote
// is an escaped quote character. Unquoted fields are trimmed.
func ParseRecord(line string, delim rune) []string {
	d := byte(delim)
	var (
		fields   []string
		b        strings.Builder
		inQuotes bool
		quoted   bool
	)

	flush := func() {
		value := b.String()
		if !quoted {
			value = strings.TrimSpace(value)
		}
		fields = append(fields, value)
		b.Reset()
		quoted = false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			b.WriteByte(c)
		case c == '"':
			inQuotes = true
			quoted = true
		case c == d:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return fields
}
