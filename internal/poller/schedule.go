package poller

import (
	"errors"
	"time"
)

// Schedule decides when the next automatic refresh happens.
type Schedule struct {
	// Interval > 0 refreshes at a fixed period.
	Interval time.Duration
	// Minute is the minute past every hour to refresh at when Interval is 0.
	Minute int
}

// DefaultSchedule refreshes at ten past every hour.
var DefaultSchedule = Schedule{Minute: 10}

func (s Schedule) validate() error {
	if s.Interval < 0 {
		return errors.New("poller: interval must be >= 0")
	}
	if s.Interval == 0 && (s.Minute < 0 || s.Minute > 59) {
		return errors.New("poller: minute must be within 0-59")
	}
	return nil
}

// Next returns the first refresh instant strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	if s.Interval > 0 {
		return now.Add(s.Interval)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), s.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}
