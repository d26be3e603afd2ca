package pm

import (
	"time"

	"pm-workorder-backend/internal/model"
)

// Status classifies how urgent a machine's next preventive maintenance is.
type Status string

const (
	StatusOverdue Status = "overdue"
	StatusDueSoon Status = "due_soon"
	StatusOK      Status = "ok"
)

// DueSoonWindowDays is the default window in which upcoming maintenance
// counts as due_soon.
const DueSoonWindowDays = 30

// DaysUntil returns the whole days from today until next. Negative when the
// date has passed. Both arguments are reduced to their calendar date first
// so time-of-day never skews the count.
func DaysUntil(next, today time.Time) int {
	return int(dateOf(next).Sub(dateOf(today)).Hours() / 24)
}

// Classify is a pure function of (nextPMDate, today): overdue once the date
// has passed, due_soon within windowDays, ok otherwise.
func Classify(next, today time.Time, windowDays int) (Status, int) {
	days := DaysUntil(next, today)
	switch {
	case days < 0:
		return StatusOverdue, days
	case days <= windowDays:
		return StatusDueSoon, days
	default:
		return StatusOK, days
	}
}

// IntervalDays maps a maintenance cadence to its rollover interval.
// Unmapped values default to 30 days.
func IntervalDays(freq model.PMFrequency) int {
	switch freq {
	case model.FrequencyMonthly:
		return 30
	case model.FrequencyBimonthly:
		return 60
	case model.FrequencyQuarterly:
		return 90
	case model.FrequencyYearly:
		return 365
	default:
		return 30
	}
}

// NextDate rolls a maintenance schedule forward from base by the cadence
// interval.
func NextDate(base time.Time, freq model.PMFrequency) time.Time {
	return dateOf(base).AddDate(0, 0, IntervalDays(freq))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
