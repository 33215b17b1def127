// Package dateutils parses the heterogeneous date strings printed on bank statements.
package dateutils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common date layouts.
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutShortDash = "2-Jan-06"
	DateLayoutDayMonth  = "2Jan"
)

// PivotYear is the two-digit year threshold: values above it belong to the 1900s,
// the rest to the 2000s.
const PivotYear = 50

// layout is a time layout plus how to complete the year it yields.
type layout struct {
	format       string
	twoDigitYear bool
	noYear       bool
}

// layouts is tried in order; the first successful parse wins.
var layouts = []layout{
	{format: DateLayoutShortDash, twoDigitYear: true},
	{format: "2 Jan 2006"},
	{format: "2/1/2006"},
	{format: "2-Jan-2006"},
	{format: "2 Jan 06", twoDigitYear: true},
	{format: DateLayoutISO},
	{format: "2/1/06", twoDigitYear: true},
	{format: "Jan 2, 2006"},
	{format: "2 January 2006"},
	{format: "January 2, 2006"},
	{format: "2-1-2006"},
	{format: "2.1.2006"},
	{format: "2Jan2006"},
	{format: "2Jan06", twoDigitYear: true},
	{format: "1/2/2006"},
	{format: "2 Jan", noYear: true},
	{format: "2-Jan", noYear: true},
	{format: DateLayoutDayMonth, noYear: true},
	{format: "Jan 2", noYear: true},
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	fallback   = regexp.MustCompile(`(?i)^(\d{1,2})[\s\-/.]*([a-z]{3}|\d{1,2})[a-z]*[\s\-/.,]*(\d{4}|\d{2})?$`)
)

var monthAbbreviations = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Parser parses statement dates. Now supplies the current year for dates printed
// without one.
type Parser struct {
	Now func() time.Time
}

// NewParser returns a Parser bound to the wall clock.
func NewParser() *Parser {
	return &Parser{Now: time.Now}
}

// Parse returns the calendar date in raw at UTC midnight. The boolean is false when no
// layout and no fallback pattern matches.
func (p *Parser) Parse(raw string) (time.Time, bool) {
	s := CleanDateString(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, l := range layouts {
		t, err := time.Parse(l.format, s)
		if err != nil {
			continue
		}
		year := t.Year()
		switch {
		case l.noYear:
			year = p.currentYear()
		case l.twoDigitYear:
			year = ExpandYear(year % 100)
		}
		if d, ok := makeDate(year, t.Month(), t.Day()); ok {
			return d, true
		}
	}

	return p.parseFallback(s)
}

// parseFallback extracts (day, month token, year) from loosely formatted input.
func (p *Parser) parseFallback(s string) (time.Time, bool) {
	m := fallback.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	var month time.Month
	if n, err := strconv.Atoi(m[2]); err == nil {
		month = time.Month(n)
	} else {
		mm, ok := monthAbbreviations[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		month = mm
	}

	year := p.currentYear()
	if m[3] != "" {
		y, err := strconv.Atoi(m[3])
		if err != nil {
			return time.Time{}, false
		}
		if len(m[3]) == 2 {
			y = ExpandYear(y)
		}
		year = y
	}

	return makeDate(year, month, day)
}

func (p *Parser) currentYear() int {
	if p.Now == nil {
		return time.Now().Year()
	}
	return p.Now().Year()
}

// makeDate builds a UTC date, rejecting values that time.Date would normalize.
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// ExpandYear applies the pivot rule to a two-digit year.
func ExpandYear(yy int) int {
	if yy > PivotYear {
		return 1900 + yy
	}
	return 2000 + yy
}

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

var defaultParser = NewParser()

// ParseDate parses raw with the wall-clock parser.
func ParseDate(raw string) (time.Time, bool) {
	return defaultParser.Parse(raw)
}
