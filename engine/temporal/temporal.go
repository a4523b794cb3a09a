// Package temporal parses the heterogeneous deadline strings found in
// tender and news records and decides whether a record describes an
// already-expired opportunity. Parsing fails open: text with no
// recognizable deadline is treated as not-yet-expired, so ambiguous dates
// never suppress a record.
package temporal

import (
	"regexp"
	"strings"
	"time"
)

// NotSpecified is the literal the tender pages publish when no deadline
// exists. It never counts as expired.
const NotSpecified = "Not specified"

// Deadline layouts in trial order, mirroring the forms seen on the site:
// day-month-year with and without a 12-hour time, then numeric and ISO.
var layouts = []string{
	"2 Jan 2006 - 3:04PM",
	"2 Jan 2006 - 3:04pm",
	"2 January 2006 - 3:04PM",
	"2 January 2006 - 3:04pm",
	"2 January 2006",
	"2 Jan 2006",
	"2-1-2006",
	"2/1/2006",
	"2006-1-2",
}

var ordinalRe = regexp.MustCompile(`(\d+)\s*(st|nd|rd|th)`)

var cueRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:deadline|last date).*?(\d{1,2}\s*(?:st|nd|rd|th)?\s+[a-zA-Z]+\s+\d{4})`),
	regexp.MustCompile(`(?i)(?:deadline|last date).*?(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
}

// ParseDeadline parses a bare deadline string. The second return is false
// when the string is empty, the NotSpecified literal, or matches no known
// layout; that is "no deadline found", not an error.
func ParseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NotSpecified) {
		return time.Time{}, false
	}
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractDeadline scans free text for a cue phrase ("deadline", "last
// date") followed by a date-like token and parses the first token that
// yields a valid date. Word-form dates are tried before numeric ones.
func ExtractDeadline(text string) (time.Time, bool) {
	for _, re := range cueRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := ParseDeadline(m[1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Filter judges expiry against an injectable clock so tests pin "now".
type Filter struct {
	now func() time.Time
}

// NewFilter returns a Filter on the wall clock.
func NewFilter() *Filter {
	return &Filter{now: time.Now}
}

// NewFilterAt returns a Filter whose notion of now comes from the given
// function.
func NewFilterAt(now func() time.Time) *Filter {
	if now == nil {
		now = time.Now
	}
	return &Filter{now: now}
}

// Expired reports whether the deadline string parses to a moment strictly
// before now. Unparseable or NotSpecified deadlines are never expired.
func (f *Filter) Expired(deadline string) bool {
	t, ok := ParseDeadline(deadline)
	return ok && t.Before(f.now())
}

// ExpiredInText reports whether free text carries a cue-phrase deadline
// strictly before now. Text with no recognizable deadline is never expired.
func (f *Filter) ExpiredInText(text string) bool {
	t, ok := ExtractDeadline(text)
	return ok && t.Before(f.now())
}
