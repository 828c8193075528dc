package delivery

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Window is a (min, max) business-day offset.
type Window struct {
	Min int
	Max int
}

// Estimator turns an order time into a delivery date range.
type Estimator struct {
	CutoffHour int
	Location   *time.Location
	// BeforeCutoff applies on a business day before CutoffHour; AfterCutoff otherwise.
	BeforeCutoff Window
	AfterCutoff  Window
}

// Estimate is a closed date range. CutoffMet is informational only.
type Estimate struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	CutoffMet bool      `json:"cutoffMet"`
}

// NewEstimator loads the named time zone and uses the default windows:
// 1-2 business days before the cutoff, 2-3 after it.
func NewEstimator(cutoffHour int, timezone string) (*Estimator, error) {
	if cutoffHour < 0 || cutoffHour > 24 {
		return nil, fmt.Errorf("cutoff hour out of range: %d", cutoffHour)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", timezone, err)
	}
	return &Estimator{
		CutoffHour:   cutoffHour,
		Location:     loc,
		BeforeCutoff: Window{Min: 1, Max: 2},
		AfterCutoff:  Window{Min: 2, Max: 3},
	}, nil
}

// Estimate computes the delivery range for an order placed at now. Missing the
// cutoff widens the window by one day, which amounts to counting from tomorrow.
func (e *Estimator) Estimate(now time.Time) Estimate {
	local := now.In(e.Location)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, e.Location)

	cutoffMet := IsBusinessDay(today) && local.Hour() < e.CutoffHour
	w := e.AfterCutoff
	if cutoffMet {
		w = e.BeforeCutoff
	}

	return Estimate{
		From:      AddWorkingDays(today, w.Min),
		To:        AddWorkingDays(today, w.Max),
		CutoffMet: cutoffMet,
	}
}
