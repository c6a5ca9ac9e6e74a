package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// yearPattern matches an explicit four-digit year, optionally
	// preceded by "from".
	yearPattern = regexp.MustCompile(`(?:from\s+)?\b(\d{4})\b`)

	// monthPattern matches a month name (full or three-letter) preceded
	// by "in" or "from". Full names come first in the alternation so
	// they win over their own abbreviations.
	monthPattern = regexp.MustCompile(`(?:in|from)\s+(january|february|march|april|august|september|october|november|december|june|july|may|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`)
)

// relativePhrase resolves a contained phrase to a date range anchored at
// evaluation time.
type relativePhrase struct {
	phrase  string
	resolve func(now time.Time) DateRange
}

// relativePhrases are checked by substring containment, first match wins,
// in exactly this order.
var relativePhrases = []relativePhrase{
	{"last week", func(now time.Time) DateRange {
		start := now.AddDate(0, 0, -7)
		return DateRange{Start: &start, End: &now}
	}},
	{"last month", func(now time.Time) DateRange {
		start := now.AddDate(0, -1, 0)
		return DateRange{Start: &start, End: &now}
	}},
	{"last year", func(now time.Time) DateRange {
		start := now.AddDate(-1, 0, 0)
		return DateRange{Start: &start, End: &now}
	}},
	{"this week", func(now time.Time) DateRange {
		// Week starts on Sunday: back up to the most recent one.
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return DateRange{Start: &start, End: &now}
	}},
	{"this month", func(now time.Time) DateRange {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: &start, End: &now}
	}},
	{"this year", func(now time.Time) DateRange {
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: &start, End: &now}
	}},
	{"today", func(now time.Time) DateRange {
		start := startOfDay(now)
		return DateRange{Start: &start, End: &now}
	}},
}

// extractDateRange resolves a date phrase from the lowercased query.
// Strategies are tried in priority order (explicit year, month name,
// relative phrases); only the first successful one applies. A failed
// strategy falls through to the next, and no match yields nil.
func extractDateRange(lower string, now time.Time) *DateRange {
	if m := yearPattern.FindStringSubmatch(lower); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil && year >= 1900 && year <= 2100 {
			start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, time.December, 31, 23, 59, 59, 0, now.Location())
			return &DateRange{Start: &start, End: &end}
		}
	}

	if m := monthPattern.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			// The named month of the current year, whole calendar days.
			start := time.Date(now.Year(), month, 1, 0, 0, 0, 0, now.Location())
			end := start.AddDate(0, 1, 0).Add(-time.Second)
			return &DateRange{Start: &start, End: &end}
		}
	}

	for _, rp := range relativePhrases {
		if strings.Contains(lower, rp.phrase) {
			r := rp.resolve(now)
			return &r
		}
	}

	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
