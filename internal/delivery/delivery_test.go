package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasterSunday_ReferenceDates(t *testing.T) {
	cases := map[int]string{
		2000: "2000-04-23",
		2019: "2019-04-21",
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
		2038: "2038-04-25",
		1981: "1981-04-19", // d == 29, e == 6 exception
		1954: "1954-04-18", // d == 28, e == 6 exception
	}
	for year, want := range cases {
		assert.Equal(t, want, EasterSunday(year).Format(time.DateOnly), "year %d", year)
	}
}

func TestCzechHolidays(t *testing.T) {
	hs := CzechHolidays(2025)
	require.Len(t, hs, 13)

	var got []string
	for _, h := range hs {
		got = append(got, h.Format(time.DateOnly))
	}
	assert.Contains(t, got, "2025-04-18") // Good Friday
	assert.Contains(t, got, "2025-04-21") // Easter Monday
	assert.Contains(t, got, "2025-10-28")
	assert.Equal(t, "2025-01-01", got[0])
	assert.Equal(t, "2025-12-26", got[len(got)-1])
}

func TestIsBusinessDay(t *testing.T) {
	assert.True(t, IsBusinessDay(date(2025, time.April, 17)))  // Thursday
	assert.False(t, IsBusinessDay(date(2025, time.April, 18))) // Good Friday
	assert.False(t, IsBusinessDay(date(2025, time.April, 19))) // Saturday
	assert.False(t, IsBusinessDay(date(2025, time.April, 20))) // Sunday
	assert.False(t, IsBusinessDay(date(2025, time.April, 21))) // Easter Monday
	assert.True(t, IsBusinessDay(date(2025, time.April, 22)))
}

func TestAddWorkingDays_Zero(t *testing.T) {
	start := date(2025, time.April, 19) // Saturday
	assert.Equal(t, start, AddWorkingDays(start, 0))
}

func TestAddWorkingDays_SkipsEasterWeekend(t *testing.T) {
	start := date(2025, time.April, 17)
	assert.Equal(t, "2025-04-22", AddWorkingDays(start, 1).Format(time.DateOnly))
	assert.Equal(t, "2025-04-23", AddWorkingDays(start, 2).Format(time.DateOnly))
}

func TestAddWorkingDays_AcrossYearEnd(t *testing.T) {
	start := date(2025, time.December, 23) // Tuesday; 24-26 holidays, 27-28 weekend
	assert.Equal(t, "2025-12-29", AddWorkingDays(start, 1).Format(time.DateOnly))
	// Jan 1 2026 is a Thursday holiday
	assert.Equal(t, "2026-01-02", AddWorkingDays(start, 4).Format(time.DateOnly))
}

func TestAddWorkingDays_NeverLandsOnNonBusinessDay(t *testing.T) {
	start := date(2024, time.January, 1)
	for day := 0; day < 731; day++ {
		s := start.AddDate(0, 0, day)
		for n := 1; n <= 5; n++ {
			got := AddWorkingDays(s, n)
			if !IsBusinessDay(got) {
				t.Fatalf("AddWorkingDays(%s, %d) = %s is not a business day", s.Format(time.DateOnly), n, got.Format(time.DateOnly))
			}
			for _, h := range CzechHolidays(got.Year()) {
				if h.Format(time.DateOnly) == got.Format(time.DateOnly) {
					t.Fatalf("landed on holiday %s", got.Format(time.DateOnly))
				}
			}
		}
	}
}

func TestEstimate_Cutoff(t *testing.T) {
	e, err := NewEstimator(14, "Europe/Prague")
	require.NoError(t, err)
	prague := e.Location

	// Wednesday 2025-10-15 10:00 local, before cutoff
	got := e.Estimate(time.Date(2025, time.October, 15, 10, 0, 0, 0, prague))
	assert.True(t, got.CutoffMet)
	assert.Equal(t, "2025-10-16", got.From.Format(time.DateOnly))
	assert.Equal(t, "2025-10-17", got.To.Format(time.DateOnly))

	// same day after cutoff
	got = e.Estimate(time.Date(2025, time.October, 15, 15, 30, 0, 0, prague))
	assert.False(t, got.CutoffMet)
	assert.Equal(t, "2025-10-17", got.From.Format(time.DateOnly))
	assert.Equal(t, "2025-10-20", got.To.Format(time.DateOnly))

	// Saturday morning never meets the cutoff
	got = e.Estimate(time.Date(2025, time.October, 18, 9, 0, 0, 0, prague))
	assert.False(t, got.CutoffMet)
	assert.Equal(t, "2025-10-21", got.From.Format(time.DateOnly))
}

func TestEstimate_UsesLocalTime(t *testing.T) {
	e, err := NewEstimator(14, "Europe/Prague")
	require.NoError(t, err)

	// 12:30 UTC is 14:30 in Prague during summer time
	got := e.Estimate(time.Date(2025, time.July, 2, 12, 30, 0, 0, time.UTC))
	assert.False(t, got.CutoffMet)
}

func TestNewEstimator_Errors(t *testing.T) {
	_, err := NewEstimator(25, "Europe/Prague")
	assert.Error(t, err)
	_, err = NewEstimator(14, "Mars/Olympus")
	assert.Error(t, err)
}
