package query

import (
	"testing"
	"time"
)

func TestExtractDateRange_Year(t *testing.T) {
	tests := []struct {
		name  string
		query string
		year  int
	}{
		{"bare year", "vacation 2022", 2022},
		{"from year", "photos from 2019", 2019},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extractDateRange(tt.query, fixedNow)
			if r == nil {
				t.Fatal("extractDateRange() = nil, want year range")
			}

			wantStart := time.Date(tt.year, time.January, 1, 0, 0, 0, 0, time.Local)
			wantEnd := time.Date(tt.year, time.December, 31, 23, 59, 59, 0, time.Local)
			if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
				t.Errorf("range = [%v, %v], want [%v, %v]", r.Start, r.End, wantStart, wantEnd)
			}
		})
	}
}

func TestExtractDateRange_YearOutOfRange(t *testing.T) {
	if r := extractDateRange("photos from 1850", fixedNow); r != nil {
		t.Errorf("extractDateRange() = %v, want nil for implausible year", r)
	}
}

func TestExtractDateRange_MonthName(t *testing.T) {
	tests := []struct {
		name  string
		query string
		month time.Month
	}{
		{"full name with in", "photos in december", time.December},
		{"full name with from", "pictures from march", time.March},
		{"abbreviation", "photos in feb", time.February},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extractDateRange(tt.query, fixedNow)
			if r == nil {
				t.Fatal("extractDateRange() = nil, want month range")
			}

			wantStart := time.Date(fixedNow.Year(), tt.month, 1, 0, 0, 0, 0, time.Local)
			wantEnd := wantStart.AddDate(0, 1, 0).Add(-time.Second)
			if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
				t.Errorf("range = [%v, %v], want [%v, %v]", r.Start, r.End, wantStart, wantEnd)
			}
		})
	}
}

func TestExtractDateRange_MonthNeedsPreposition(t *testing.T) {
	// A bare month name without "in"/"from" is not a date phrase.
	if r := extractDateRange("december lights", fixedNow); r != nil {
		t.Errorf("extractDateRange() = %v, want nil without preposition", r)
	}
}

func TestExtractDateRange_YearWinsOverMonth(t *testing.T) {
	r := extractDateRange("photos from december 2023", fixedNow)
	if r == nil {
		t.Fatal("extractDateRange() = nil")
	}

	wantStart := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.Local)
	if !r.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v (year branch has priority)", r.Start, wantStart)
	}
}

func TestExtractDateRange_RelativePhrases(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
	}{
		{"last week", "photos from last week", fixedNow.AddDate(0, 0, -7)},
		{"last month", "pictures from last month", fixedNow.AddDate(0, -1, 0)},
		{"last year", "photos from last year", fixedNow.AddDate(-1, 0, 0)},
		// fixedNow is Wednesday 2024-06-12; the week began Sunday 06-09.
		{"this week", "photos from this week", time.Date(2024, time.June, 9, 0, 0, 0, 0, time.Local)},
		{"this month", "photos from this month", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.Local)},
		{"this year", "photos from this year", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)},
		{"today", "photos from today", time.Date(2024, time.June, 12, 0, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extractDateRange(tt.query, fixedNow)
			if r == nil {
				t.Fatal("extractDateRange() = nil, want relative range")
			}
			if !r.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", r.Start, tt.wantStart)
			}
			if !r.End.Equal(fixedNow) {
				t.Errorf("End = %v, want now (%v)", r.End, fixedNow)
			}
		})
	}
}

func TestExtractDateRange_RelativePriorityOrder(t *testing.T) {
	// "last week" precedes "this week" in the check order, so a query
	// containing both resolves to "last week".
	r := extractDateRange("this week or last week", fixedNow)
	if r == nil {
		t.Fatal("extractDateRange() = nil")
	}
	if want := fixedNow.AddDate(0, 0, -7); !r.Start.Equal(want) {
		t.Errorf("Start = %v, want %v (last week wins)", r.Start, want)
	}
}

func TestExtractDateRange_NoMatch(t *testing.T) {
	if r := extractDateRange("beach sunset dog", fixedNow); r != nil {
		t.Errorf("extractDateRange() = %v, want nil", r)
	}
}

func TestDateRange_Contains(t *testing.T) {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name string
		r    *DateRange
		t    time.Time
		want bool
	}{
		{"nil range", nil, start, false},
		{"inside", &DateRange{Start: &start, End: &end}, start.AddDate(0, 6, 0), true},
		{"at start", &DateRange{Start: &start, End: &end}, start, true},
		{"at end", &DateRange{Start: &start, End: &end}, end, true},
		{"before", &DateRange{Start: &start, End: &end}, start.Add(-time.Second), false},
		{"after", &DateRange{Start: &start, End: &end}, end.Add(time.Second), false},
		{"open start", &DateRange{End: &end}, start.AddDate(-10, 0, 0), true},
		{"open end", &DateRange{Start: &start}, end.AddDate(10, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
