// Package delivery estimates parcel delivery dates over Czech business days.
package delivery

import (
	"sort"
	"time"
)

// EasterSunday computes the Gregorian Easter Sunday of year with Gauss's method.
// The result is midnight UTC.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year % 4
	c := year % 7
	k := year / 100
	p := (13 + 8*k) / 25
	q := k / 4
	m := (15 - p + k - q) % 30
	n := (4 + k - q) % 7
	d := (19*a + m) % 30
	e := (2*b + 4*c + 6*d + n) % 7

	switch {
	case d == 29 && e == 6:
		return date(year, time.April, 19)
	case d == 28 && e == 6 && (11*m+11)%30 < 19:
		return date(year, time.April, 18)
	}
	// March 22 + d + e; time.Date normalises day overflow into April.
	return date(year, time.March, 22+d+e)
}

var fixedHolidays = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},    // Restoration Day / New Year
	{time.May, 1},        // Labour Day
	{time.May, 8},        // Liberation Day
	{time.July, 5},       // Saints Cyril and Methodius
	{time.July, 6},       // Jan Hus
	{time.September, 28}, // Czech Statehood Day
	{time.October, 28},   // Independent Czechoslovak State Day
	{time.November, 17},  // Struggle for Freedom and Democracy Day
	{time.December, 24},
	{time.December, 25},
	{time.December, 26},
}

// CzechHolidays lists the public holidays of year in date order, including the
// movable Good Friday and Easter Monday.
func CzechHolidays(year int) []time.Time {
	easter := EasterSunday(year)
	out := make([]time.Time, 0, len(fixedHolidays)+2)
	for _, h := range fixedHolidays {
		out = append(out, date(year, h.month, h.day))
	}
	out = append(out,
		easter.AddDate(0, 0, -2), // Good Friday
		easter.AddDate(0, 0, 1),  // Easter Monday
	)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// IsHoliday reports whether t's calendar date (in t's location) is a public holiday.
func IsHoliday(t time.Time) bool {
	y, m, d := t.Date()
	for _, h := range CzechHolidays(y) {
		if h.Month() == m && h.Day() == d {
			return true
		}
	}
	return false
}

// IsBusinessDay is neither a weekend day nor a public holiday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsHoliday(t)
}

// AddWorkingDays walks forward one calendar day at a time until n business days
// have been consumed. n <= 0 returns start unchanged.
func AddWorkingDays(start time.Time, n int) time.Time {
	d := start
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			added++
		}
	}
	return d
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
