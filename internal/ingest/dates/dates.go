// Package dates normalizes the date representations found in provincial
// surveillance exports into a single canonical YYYY-MM-DD form. Exports arrive
// from several generations of tooling: Excel day serials, ISO dates, slash and
// dash day-first dates, and Buddhist-calendar years.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Excel day serials are only trusted inside this window (covers ~1954-2146);
// anything outside it is far more likely to be a year or an id column.
const (
	serialMin = 20000
	serialMax = 90000
)

// excelEpochOffset is the day count between the Excel epoch (1899-12-30) and
// the Unix epoch.
const excelEpochOffset = 25569

// Years at or above this are Buddhist-calendar years, 543 ahead of Gregorian.
const buddhistYearMin = 2400

const canonicalLayout = "2006-01-02"

var (
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashYRe   = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	slashDayRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashDayRe  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// Canonical formats a time as the canonical YYYY-MM-DD string.
func Canonical(t time.Time) string {
	return t.UTC().Format(canonicalLayout)
}

// Parse converts a raw cell value into a canonical YYYY-MM-DD string. Formats
// are tried in priority order: Excel day serial, YYYY-MM-DD, YYYY/M/D,
// D/M/YYYY, D-M-YYYY, and finally a numeric string re-checked as a serial.
// A time-of-day suffix is discarded. Buddhist years are converted to Gregorian
// before calendar validation, and a candidate is accepted only if its
// year/month/day round-trip through the calendar.
func Parse(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	// Drop a time-of-day suffix ("2024-01-05 13:00:00", "2024-01-05T13:00").
	if i := strings.IndexAny(value, " T"); i > 0 {
		value = value[:i]
	}

	if out, ok := parseSerial(value); ok {
		return out, true
	}

	type attempt struct {
		re       *regexp.Regexp
		yearIdx  int
		monthIdx int
		dayIdx   int
	}
	attempts := []attempt{
		{isoRe, 1, 2, 3},
		{slashYRe, 1, 2, 3},
		{slashDayRe, 3, 2, 1},
		{dashDayRe, 3, 2, 1},
	}
	for _, a := range attempts {
		m := a.re.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		if out, ok := makeDate(atoi(m[a.yearIdx]), atoi(m[a.monthIdx]), atoi(m[a.dayIdx])); ok {
			return out, true
		}
	}

	// Last resort: a serial that survived as a plain numeric string.
	return parseSerial(value)
}

func parseSerial(value string) (string, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < serialMin || serial > serialMax {
		return "", false
	}
	ms := (serial - excelEpochOffset) * 86400000
	t := time.UnixMilli(int64(ms)).UTC()
	return Canonical(t), true
}

func makeDate(year, month, day int) (string, bool) {
	if year >= buddhistYearMin {
		year -= 543
	}
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	// time.Date normalizes overflow (Feb 31 -> Mar 2/3); reject anything that
	// does not round-trip.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
